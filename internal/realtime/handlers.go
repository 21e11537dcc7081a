package realtime

import (
	"encoding/json"

	"convocoach/internal/types"
)

// Status is reported whenever the connection state or error changes.
type Status struct {
	SessionID string
	State     State
	Err       error
}

func (s Status) Connected() bool {
	return s.State == StateConnected
}

// Handlers receive decoded server events. Nil fields are skipped. Progress
// and legacy responses carry no session id on the wire, so the channel passes
// its own.
type Handlers struct {
	OnJoined           func(types.JoinedConversationPayload)
	OnProgress         func(sessionID string, payload types.ChatAnalysisProgressPayload)
	OnComplete         func(types.AnalysisSessionCompletePayload)
	OnAnalysisResponse func(sessionID string, data json.RawMessage)
	OnStatus           func(Status)
}
