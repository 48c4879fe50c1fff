package repository

import (
	"regexp"
	"strings"
	"time"

	"github.com/portfolio/backend/internal/model"
)

// EmailPattern is the pattern a stored email must match. The Mongo validator
// and the Postgres CHECK constraint use the same expression.
const EmailPattern = `.+@.+\..+`

var emailRe = regexp.MustCompile(EmailPattern)

// applyContactSchema normalises msg in place and enforces the contact schema.
// Every store calls it before issuing an insert, so a rejected record never
// reaches the database.
func applyContactSchema(msg *model.ContactMessage, now time.Time) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.SubmittedAt.IsZero() {
		msg.SubmittedAt = now
	}
	// Mongo keeps millisecond precision; truncate so every store round-trips the same value.
	msg.SubmittedAt = msg.SubmittedAt.UTC().Truncate(time.Millisecond)

	switch {
	case msg.Name == "":
		return &SchemaValidationError{Field: "name", Reason: "is required"}
	case msg.Email == "":
		return &SchemaValidationError{Field: "email", Reason: "is required"}
	case msg.Message == "":
		return &SchemaValidationError{Field: "message", Reason: "is required"}
	}
	if !emailRe.MatchString(msg.Email) {
		return &SchemaValidationError{Field: "email", Reason: "is not a valid email address"}
	}
	return nil
}
