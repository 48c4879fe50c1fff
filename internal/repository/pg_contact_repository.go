package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/portfolio/backend/internal/model"
)

// SQLSTATE codes the contact table can raise for rejected rows.
const (
	pgCheckViolation   = "23514"
	pgNotNullViolation = "23502"
)

var pgConstraintFields = map[string]string{
	"contact_messages_name_check":    "name",
	"contact_messages_email_check":   "email",
	"contact_messages_message_check": "message",
}

// PgContactRepository is the PostgreSQL implementation of ContactRepository.
type PgContactRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgContactRepository creates a PgContactRepository backed by the given pool.
func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool, now: time.Now}
}

// Ensure PgContactRepository implements ContactRepository at compile time.
var (
	_ ContactRepository = (*PgContactRepository)(nil)
	_ Migrator          = (*PgContactRepository)(nil)
)

// Save inserts a new contact_messages row and populates msg.ID from the
// database RETURNING clause.
func (r *PgContactRepository) Save(ctx context.Context, msg *model.ContactMessage) error {
	if err := applyContactSchema(msg, r.now()); err != nil {
		return err
	}
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (name, email, message, submitted_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text`,
		msg.Name, msg.Email, msg.Message, msg.SubmittedAt,
	).Scan(&id)
	if err != nil {
		return mapPgError(err)
	}
	msg.ID = id
	return nil
}

// FindByID returns the contact message with the given id, or ErrNotFound.
func (r *PgContactRepository) FindByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var m model.ContactMessage
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, name, email, message, submitted_at
		 FROM contact_messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.SubmittedAt = m.SubmittedAt.UTC()
	return &m, nil
}

// List returns contact messages newest first, paginated by limit/offset.
func (r *PgContactRepository) List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactMessage, error) {
	opts = opts.Normalized()
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, name, email, message, submitted_at
		 FROM contact_messages
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*model.ContactMessage
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.SubmittedAt); err != nil {
			return nil, err
		}
		m.SubmittedAt = m.SubmittedAt.UTC()
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// EnsureSchema applies any embedded migrations that have not run yet.
func (r *PgContactRepository) EnsureSchema(ctx context.Context) error {
	_, err := applyPgMigrations(ctx, r.pool)
	return err
}

// Drop removes the contact table and the migration history.
func (r *PgContactRepository) Drop(ctx context.Context) error {
	return dropPgSchema(ctx, r.pool)
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgCheckViolation:
		return &SchemaValidationError{
			Field:  pgConstraintFields[pgErr.ConstraintName],
			Reason: "violates constraint " + pgErr.ConstraintName,
			Err:    err,
		}
	case pgNotNullViolation:
		return &SchemaValidationError{Field: pgErr.ColumnName, Reason: "is required", Err: err}
	}
	return err
}
