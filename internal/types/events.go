package types

const (
	EventStartChat               = "start_chat"
	EventJoinedConversation      = "joined_conversation"
	EventChatAnalysisResponse    = "chat_analysis_response"
	EventAnalysisSessionComplete = "analysis_session_complete"
	EventChatAnalysisProgress    = "chat_analysis_progress"
)

type StartChatPayload struct {
	SessionID string `json:"sessionId"`
}

type JoinedConversationPayload struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message,omitempty"`
}

type AnalysisSessionCompletePayload struct {
	SessionID      string          `json:"sessionId"`
	Status         SessionStatus   `json:"status"`
	AnalysisResult *AnalysisResult `json:"analysisResult,omitempty"`
}

type ChatAnalysisProgressPayload struct {
	MessageID string `json:"messageId"`
	Chunk     string `json:"chunk"`
}
