package types

import "time"

type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// Terminal reports whether the server has finished with the session.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

type RelationshipType string

const (
	RelationshipFriend       RelationshipType = "friend"
	RelationshipFamily       RelationshipType = "family"
	RelationshipColleague    RelationshipType = "colleague"
	RelationshipPartner      RelationshipType = "partner"
	RelationshipAcquaintance RelationshipType = "acquaintance"
	RelationshipRomantic     RelationshipType = "romantic"
	RelationshipOther        RelationshipType = "other"
)

type Relationship struct {
	ID       string           `json:"id,omitempty"`
	Name     string           `json:"name,omitempty"`
	Relation RelationshipType `json:"relation"`
}

type Session struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	Title          string          `json:"title,omitempty"`
	ContextMessage string          `json:"contextMessage,omitempty"`
	Status         SessionStatus   `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"`
	Relationship   *Relationship   `json:"relationship,omitempty"`
	Result         *AnalysisResult `json:"result,omitempty"`
	Uploads        []*Upload       `json:"uploads,omitempty"`
}

// DisplayTitle falls back to the context message and then the id.
func (s *Session) DisplayTitle() string {
	if s == nil {
		return ""
	}
	if s.Title != "" {
		return s.Title
	}
	if s.ContextMessage != "" {
		return s.ContextMessage
	}
	return s.ID
}

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

type Upload struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId,omitempty"`
	ChatMessageID string    `json:"chatMessageId,omitempty"`
	FilePath      string    `json:"filePath"`
	FileType      FileType  `json:"fileType"`
	FileName      string    `json:"fileName"`
	OrderIndex    int       `json:"orderIndex"`
	ExtractedText string    `json:"extractedText,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type GeminiModel string

const (
	GeminiModel3ProPreview GeminiModel = "gemini-3-pro-preview"
	GeminiModel25Pro       GeminiModel = "gemini-2.5-pro"
	GeminiModel25Flash     GeminiModel = "gemini-2.5-flash"
)

var GeminiModels = []GeminiModel{GeminiModel3ProPreview, GeminiModel25Pro, GeminiModel25Flash}
