package models

import "time"

// User represents a registered user of the platform. Handlers strip
// PasswordHash before returning a user to a client.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"passwordHash,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastLoginAt  time.Time         `json:"lastLoginAt,omitempty"`
}
