package types

type AppState struct {
	ActiveSessionID  string      `json:"active_session_id"`
	SearchQuery      string      `json:"search_query,omitempty"`
	SidebarCollapsed bool        `json:"sidebar_collapsed"`
	Model            GeminiModel `json:"model,omitempty"`
}
