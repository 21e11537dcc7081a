package app

import (
	"encoding/json"
	"time"

	"convocoach/internal/auth"
	"convocoach/internal/chat"
	"convocoach/internal/realtime"
	"convocoach/internal/sessions"
	"convocoach/internal/types"
)

type tickMsg time.Time

type sessionsCachedMsg struct {
	count int
	err   error
}

type sessionsPageMsg struct {
	result sessions.Result
}

type historyPageMsg struct {
	result chat.PageResult
}

type sessionLoadedMsg struct {
	sessionID string
	session   *types.Session
	err       error
	// refreshed marks a re-fetch after completion; the sidebar copy is
	// replaced too.
	refreshed bool
}

type messageSentMsg struct {
	sessionID string
	localID   string
	message   *types.Message
	err       error
}

type uploadProgressMsg struct {
	percent float64
}

type analysisCreatedMsg struct {
	session *types.Session
	err     error
}

type appStateSavedMsg struct {
	err error
}

type realtimeJoinedMsg struct {
	payload types.JoinedConversationPayload
}

type realtimeProgressMsg struct {
	sessionID string
	payload   types.ChatAnalysisProgressPayload
}

type realtimeCompleteMsg struct {
	payload types.AnalysisSessionCompletePayload
}

type realtimeResponseMsg struct {
	sessionID string
	data      json.RawMessage
}

type realtimeStatusMsg struct {
	status realtime.Status
}

type authEventMsg struct {
	event auth.Event
}
