package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store drivers accepted by Open.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// NewPool creates a PostgreSQL connection pool and checks it can reach the server.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Options selects and locates the contact store.
type Options struct {
	Driver          string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	PostgresURL     string
	BoltPath        string
	ConnectTimeout  time.Duration
}

// Store owns the connection behind the contact repository. It is opened once
// at startup, shared by every request and released with Close.
type Store struct {
	Contacts ContactRepository
	Migrator Migrator

	db    DB
	close func(ctx context.Context) error
}

// NewStore assembles a Store from already-open parts. Open is the usual entry point.
func NewStore(contacts ContactRepository, migrator Migrator, db DB, closeFn func(ctx context.Context) error) *Store {
	if closeFn == nil {
		closeFn = func(context.Context) error { return nil }
	}
	return &Store{Contacts: contacts, Migrator: migrator, db: db, close: closeFn}
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the underlying connection.
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Open connects to the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (*Store, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch opts.Driver {
	case DriverMongo:
		client, err := NewMongoClient(connectCtx, opts.MongoURI)
		if err != nil {
			return nil, err
		}
		repo := NewMongoContactRepository(client.Database(opts.MongoDatabase).Collection(opts.MongoCollection))
		return NewStore(repo, repo, mongoPinger{client: client}, client.Disconnect), nil

	case DriverPostgres:
		pool, err := NewPool(connectCtx, opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo := NewPgContactRepository(pool)
		return NewStore(repo, repo, pool, func(context.Context) error {
			pool.Close()
			return nil
		}), nil

	case DriverBolt:
		db, err := OpenBolt(opts.BoltPath, timeout)
		if err != nil {
			return nil, err
		}
		repo := NewBoltContactRepository(db)
		return NewStore(repo, repo, boltPinger{db: db}, func(context.Context) error {
			return db.Close()
		}), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}
