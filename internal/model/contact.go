package model

import "time"

// ContactMessage represents a message submitted via the contact form.
type ContactMessage struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ContactSubmission is the client payload for POST /api/contact.
type ContactSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ContactListOptions carries pagination parameters for listing contact messages.
// Results are ordered newest first.
type ContactListOptions struct {
	Limit  int
	Offset int
}

const (
	DefaultContactListLimit = 20
	MaxContactListLimit     = 100
)

// Normalized clamps Limit and Offset into their accepted ranges.
func (o ContactListOptions) Normalized() ContactListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultContactListLimit
	}
	if o.Limit > MaxContactListLimit {
		o.Limit = MaxContactListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
