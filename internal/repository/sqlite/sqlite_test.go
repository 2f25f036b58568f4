package sqlite

import (
	"context"
	"testing"

	"github.com/livme/livme/internal/model"
)

// newTestDB opens a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestProfile inserts a profile with the given id and handle.
func createTestProfile(t *testing.T, db *DB, id, handle string) *model.Profile {
	t.Helper()
	p := &model.Profile{
		ID:     id,
		Handle: handle,
		Name:   handle,
		Bio:    model.DefaultBio,
	}
	if err := db.Profiles().Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
