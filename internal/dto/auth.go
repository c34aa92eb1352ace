package dto

import "time"

// ProfileResponse represents an identity as exposed via HTTP. Password hashes
// never appear here.
type ProfileResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Contact     string `json:"contact,omitempty"`
	Address     string `json:"address,omitempty"`
}

// SessionResponse is an issued bearer token.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
