package auth

import "time"

type contextKey string

// SessionContextKey carries the *store.SessionRecord of an authenticated request.
const SessionContextKey contextKey = "session"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserDTO struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	Roles       []string   `json:"roles"`
	Active      bool       `json:"active"`
	Plan        string     `json:"plan"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
}

type EffectiveAccess struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}
