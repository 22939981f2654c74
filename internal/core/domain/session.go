package domain

import "time"

// Session is the authenticated identity held by a client.
type Session struct {
	Token    string    `json:"token"`
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	IssuedAt time.Time `json:"issued_at"`
	// User is the last-known user record returned by the backend.
	User *User `json:"user,omitempty"`
}

// CredentialResult is what a successful sign-in returns.
type CredentialResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
