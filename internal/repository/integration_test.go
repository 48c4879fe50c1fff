package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/portfolio/backend/internal/model"
)

// openIntegrationStore opens a live store for driver, skipping the test in
// short mode or when the connection env var is not set.
func openIntegrationStore(t *testing.T, driver, envKey string) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv(envKey)
	if url == "" {
		t.Skipf("%s not set", envKey)
	}

	ctx := context.Background()
	opts := Options{Driver: driver, ConnectTimeout: 5 * time.Second}
	switch driver {
	case DriverMongo:
		opts.MongoURI = url
		opts.MongoDatabase = "portfolio_test"
		opts.MongoCollection = fmt.Sprintf("contactmessages_%d", time.Now().UnixNano())
	case DriverPostgres:
		opts.PostgresURL = url
	}

	store, err := Open(ctx, opts)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	if err := store.Migrator.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if driver == DriverMongo {
		t.Cleanup(func() { _ = store.Migrator.Drop(context.Background()) })
	}
	return store
}

func exerciseContactStore(t *testing.T, store *Store) {
	ctx := context.Background()
	repo := store.Contacts

	unique := fmt.Sprintf("%d", time.Now().UnixNano())
	msg := &model.ContactMessage{
		Name:    " Test User ",
		Email:   fmt.Sprintf(" TEST-%s@Example.com ", unique),
		Message: " hello ",
	}
	if err := repo.Save(ctx, msg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected ID to be set after Save")
	}

	found, err := repo.FindByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	wantEmail := fmt.Sprintf("test-%s@example.com", unique)
	if found.Email != wantEmail {
		t.Errorf("expected email %q, got %q", wantEmail, found.Email)
	}
	if found.Name != "Test User" || found.Message != "hello" {
		t.Errorf("expected trimmed name/message, got %q / %q", found.Name, found.Message)
	}
	if !found.SubmittedAt.Equal(msg.SubmittedAt) {
		t.Errorf("expected SubmittedAt %v, got %v", msg.SubmittedAt, found.SubmittedAt)
	}

	bad := &model.ContactMessage{Name: "Bob", Email: "not-an-email", Message: "Hi"}
	var sve *SchemaValidationError
	if err := repo.Save(ctx, bad); !errors.As(err, &sve) {
		t.Errorf("expected SchemaValidationError, got %v", err)
	}

	if _, err := repo.FindByID(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	page, err := repo.List(ctx, model.ContactListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("expected 1 record, got %d", len(page))
	}
}

func TestMongoContactRepository_Integration(t *testing.T) {
	store := openIntegrationStore(t, DriverMongo, "MONGODB_TEST_URI")
	exerciseContactStore(t, store)

	// The server-side validator rejects documents that bypass the schema layer.
	repo := store.Contacts.(*MongoContactRepository)
	_, err := repo.coll.InsertOne(context.Background(), contactDocument{Name: "x", Email: "nope", Message: "m", Date: time.Now()})
	var sve *SchemaValidationError
	if !errors.As(mapMongoError(err), &sve) {
		t.Errorf("expected validator rejection, got %v", err)
	}
}

func TestPgContactRepository_Integration(t *testing.T) {
	store := openIntegrationStore(t, DriverPostgres, "DATABASE_TEST_URL")
	exerciseContactStore(t, store)
}
