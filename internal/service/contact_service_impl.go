package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/portfolio/backend/internal/model"
	"github.com/portfolio/backend/internal/repository"
)

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo     repository.ContactRepository
	notifier Notifier
	now      func() time.Time
}

// ContactOption customises a ContactService.
type ContactOption func(*contactServiceImpl)

// WithNotifier publishes every stored message to n.
func WithNotifier(n Notifier) ContactOption {
	return func(s *contactServiceImpl) { s.notifier = n }
}

// WithClock replaces time.Now as the source of SubmittedAt.
func WithClock(now func() time.Time) ContactOption {
	return func(s *contactServiceImpl) { s.now = now }
}

// NewContactService creates a ContactService backed by the given repository.
func NewContactService(repo repository.ContactRepository, opts ...ContactOption) ContactService {
	s := &contactServiceImpl{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit checks the three required fields, normalises them, stamps
// SubmittedAt and performs exactly one insert. Email format is left to the
// store schema.
func (s *contactServiceImpl) Submit(ctx context.Context, in model.ContactSubmission) (*model.ContactMessage, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	message := strings.TrimSpace(in.Message)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	msg := &model.ContactMessage{
		Name:        name,
		Email:       email,
		Message:     message,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, msg); err != nil {
			slog.WarnContext(ctx, "contact notification failed", "error", err, "contact_id", msg.ID)
		}
	}
	return msg, nil
}

// Get returns the message with the given id; repository.ErrNotFound when absent.
func (s *contactServiceImpl) Get(ctx context.Context, id string) (*model.ContactMessage, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns contact messages according to the given pagination options.
func (s *contactServiceImpl) List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactMessage, error) {
	return s.repo.List(ctx, opts.Normalized())
}
