package types

import "time"

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type Message struct {
	ID        string      `json:"id,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	MediaURLs []string    `json:"mediaUrls,omitempty"`
	Uploads   []*Upload   `json:"uploads,omitempty"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	if m.MediaURLs != nil {
		out.MediaURLs = append([]string{}, m.MediaURLs...)
	}
	if m.CreatedAt != nil {
		ts := *m.CreatedAt
		out.CreatedAt = &ts
	}
	return &out
}
