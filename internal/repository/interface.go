package repository

import (
	"context"

	"github.com/portfolio/backend/internal/model"
)

// DB checks that the underlying store connection is alive.
type DB interface {
	Ping(ctx context.Context) error
}

// ContactRepository defines the persistence interface for contact messages.
// It is defined here (in repository) to avoid an import cycle with service.
type ContactRepository interface {
	// Save applies the contact schema to msg, inserts it and populates msg.ID.
	// Records are never updated once saved.
	Save(ctx context.Context, msg *model.ContactMessage) error
	FindByID(ctx context.Context, id string) (*model.ContactMessage, error)
	List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactMessage, error)
}

// Migrator prepares and tears down the storage a ContactRepository writes to.
type Migrator interface {
	// EnsureSchema is idempotent.
	EnsureSchema(ctx context.Context) error
	Drop(ctx context.Context) error
}
