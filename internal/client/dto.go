package client

import "convocoach/internal/types"

type PageMeta struct {
	Total   int `json:"total"`
	Page    int `json:"page,omitempty"`
	PerPage int `json:"perPage,omitempty"`
}

type SessionsPage struct {
	Data []*types.Session `json:"data"`
	Meta PageMeta         `json:"meta"`
}

type MessagesPage struct {
	Data []*types.Message `json:"data"`
	Meta PageMeta         `json:"meta"`
}

type ListParams struct {
	Page    int    `validate:"min=0"`
	PerPage int    `validate:"min=1,max=100"`
	Search  string `validate:"max=200"`
	Order   string `validate:"omitempty,oneof=createdAt:desc createdAt:asc"`
}

type CreateSessionRequest struct {
	ContextMessage string            `json:"contextMessage,omitempty" validate:"max=4000"`
	MediaURLs      []string          `json:"mediaUrls" validate:"min=1,max=10,dive,url"`
	Model          types.GeminiModel `json:"model,omitempty" validate:"omitempty,oneof=gemini-3-pro-preview gemini-2.5-pro gemini-2.5-flash"`
}

type SendMessageRequest struct {
	SessionID       string            `json:"sessionId" validate:"required"`
	Role            types.MessageRole `json:"role" validate:"required,oneof=user assistant"`
	Content         string            `json:"content" validate:"required"`
	MediaURLs       []string          `json:"mediaUrls,omitempty" validate:"omitempty,max=10,dive,url"`
	AnalysisContext string            `json:"analysisContext,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	DeviceID string `json:"deviceId" validate:"required"`
}

type SignUpUser struct {
	DisplayName   string   `json:"displayName" validate:"required,max=100"`
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"required,min=6"`
	AvatarURL     string   `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	MBTI          string   `json:"mbti,omitempty" validate:"omitempty,len=4"`
	ZodiacSign    string   `json:"zodiacSign,omitempty"`
	LoveLanguages []string `json:"loveLanguages,omitempty"`
}

type SignUpRequest struct {
	User     SignUpUser `json:"user"`
	DeviceID string     `json:"deviceId" validate:"required"`
}

type RefreshRequest struct {
	DeviceID     string          `json:"deviceId" validate:"required"`
	RefreshToken string          `json:"refreshToken" validate:"required"`
	Type         types.TokenType `json:"type" validate:"required,oneof=ACCESS_TOKEN REFRESH_TOKEN"`
}

type AuthResponse struct {
	User         *types.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

func (r AuthResponse) State() types.AuthState {
	return types.AuthState{
		Tokens: types.TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken},
		User:   r.User,
	}
}

// UpdateProfileRequest sends only the fields that are set.
type UpdateProfileRequest struct {
	DisplayName   *string  `json:"displayName,omitempty" validate:"omitempty,min=1,max=100"`
	AvatarURL     *string  `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Email         *string  `json:"email,omitempty" validate:"omitempty,email"`
	MBTI          *string  `json:"mbti,omitempty" validate:"omitempty,len=4"`
	ZodiacSign    *string  `json:"zodiacSign,omitempty"`
	LoveLanguages []string `json:"loveLanguages,omitempty"`
}
