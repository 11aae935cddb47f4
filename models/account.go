package models

import "time"

// Account represents a connected mailbox configuration. The Password
// field holds ciphertext only; plaintext is never persisted. Handlers
// blank it before returning an account to a client.
type Account struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	Provider      string    `json:"provider"`
	IMAPHost      string    `json:"imapHost"`
	IMAPPort      int       `json:"imapPort"`
	SMTPHost      string    `json:"smtpHost"`
	SMTPPort      int       `json:"smtpPort"`
	Password      string    `json:"password,omitempty"`
	IsActive      bool      `json:"isActive"`
	DisplayName   string    `json:"displayName,omitempty"`
	ZohoAccountID string    `json:"zohoAccountId,omitempty"`
	CreatedViaIAM bool      `json:"createdViaIAM,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy safe to hand to clients: the ciphertext
// password is stripped.
func (a Account) Sanitized() Account {
	a.Password = ""
	return a
}
