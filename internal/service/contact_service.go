package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/portfolio/backend/internal/model"
)

// ContactService defines the business logic for contact form submissions.
type ContactService interface {
	// Submit validates and normalises the submission, persists it and returns
	// the stored record. Errors are *ValidationError or *PersistenceError.
	Submit(ctx context.Context, in model.ContactSubmission) (*model.ContactMessage, error)

	// Get returns a stored message by id.
	Get(ctx context.Context, id string) (*model.ContactMessage, error)

	// List returns stored messages newest first.
	List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactMessage, error)
}

// Notifier is told about every successfully stored message.
type Notifier interface {
	Publish(ctx context.Context, msg *model.ContactMessage) error
}

// ValidationError reports required fields that were missing or blank.
// Nothing is written when it is returned.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "all fields are required: missing " + strings.Join(e.Missing, ", ")
}

// PersistenceError reports that the store rejected or failed the write.
// The store's error, including *repository.SchemaValidationError, is
// reachable through errors.As.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist contact message: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
