package testutil

import (
	"context"
	"testing"

	"github.com/nhle/ecotrack-console/internal/readstate"
	"github.com/nhle/ecotrack-console/internal/store"
)

// NewTestStore opens an in-memory state database with every migration
// applied and closes it when the test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening state database: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing state database: %v", err)
		}
	})

	return s
}

// NewReadState returns a read-marker store backed by db, already loaded.
// A nil db gets a fresh in-memory database.
func NewReadState(t *testing.T, db *store.SQLiteStore) *readstate.Store {
	t.Helper()

	if db == nil {
		db = NewTestStore(t)
	}
	reads := readstate.New(db)
	if err := reads.Load(context.Background()); err != nil {
		t.Fatalf("loading read markers: %v", err)
	}
	return reads
}
