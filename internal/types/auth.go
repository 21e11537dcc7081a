package types

import "time"

type UserRole string

const (
	UserRoleUser       UserRole = "USER"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSuperAdmin UserRole = "SUPERADMIN"
)

type User struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"displayName,omitempty"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	Email         string     `json:"email"`
	Role          UserRole   `json:"role,omitempty"`
	MBTI          string     `json:"mbti,omitempty"`
	ZodiacSign    string     `json:"zodiacSign,omitempty"`
	LoveLanguages []string   `json:"loveLanguages,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (p TokenPair) Empty() bool {
	return p.AccessToken == "" || p.RefreshToken == ""
}

type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS_TOKEN"
	TokenTypeRefresh TokenType = "REFRESH_TOKEN"
)

// AuthState is the persisted client credential record.
type AuthState struct {
	Tokens TokenPair `json:"tokens"`
	User   *User     `json:"user,omitempty"`
}

func (s *AuthState) SignedIn() bool {
	return s != nil && !s.Tokens.Empty()
}
