package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/portfolio/backend/internal/model"
)

const contactBucket = "contact_messages"

// OpenBolt opens (or creates) the bolt database file at path.
func OpenBolt(path string, timeout time.Duration) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return db, nil
}

// boltPinger adapts *bolt.DB to DB. A closed database fails the read transaction.
type boltPinger struct {
	db *bolt.DB
}

func (p boltPinger) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.View(func(*bolt.Tx) error { return nil })
}

// BoltContactRepository stores contact messages as JSON values in a single
// bolt bucket keyed by a random UUID.
type BoltContactRepository struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltContactRepository creates a BoltContactRepository backed by db.
func NewBoltContactRepository(db *bolt.DB) *BoltContactRepository {
	return &BoltContactRepository{db: db, now: time.Now}
}

var (
	_ ContactRepository = (*BoltContactRepository)(nil)
	_ Migrator          = (*BoltContactRepository)(nil)
)

// Save writes msg in its own transaction and sets msg.ID once it commits.
func (r *BoltContactRepository) Save(ctx context.Context, msg *model.ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := applyContactSchema(msg, r.now()); err != nil {
		return err
	}

	rec := *msg
	rec.ID = uuid.NewString()
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal contact message: %w", err)
	}

	err = r.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(contactBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), data)
	})
	if err != nil {
		return err
	}
	msg.ID = rec.ID
	return nil
}

// FindByID returns the message stored under id, or ErrNotFound.
func (r *BoltContactRepository) FindByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m *model.ContactMessage
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(contactBucket))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		m = &model.ContactMessage{}
		return json.Unmarshal(v, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List loads every message, orders them newest first and returns one page.
func (r *BoltContactRepository) List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.Normalized()

	var all []*model.ContactMessage
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(contactBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var m model.ContactMessage
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			all = append(all, &m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].SubmittedAt.After(all[j].SubmittedAt)
		}
		return all[i].ID > all[j].ID
	})

	if opts.Offset >= len(all) {
		return nil, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], nil
}

// EnsureSchema creates the contact bucket.
func (r *BoltContactRepository) EnsureSchema(ctx context.Context) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(contactBucket))
		return err
	})
}

// Drop deletes the contact bucket and everything in it.
func (r *BoltContactRepository) Drop(ctx context.Context) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(contactBucket))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}
