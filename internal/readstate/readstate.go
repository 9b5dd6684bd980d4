// Package readstate tracks which notifications the operator has already
// opened. The set survives restarts and is never pruned.
package readstate

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Persister durably stores the whole read set.
type Persister interface {
	LoadReadState(ctx context.Context) ([]string, error)
	SaveReadState(ctx context.Context, ids []string) error
}

// Store is the in-memory read set backed by a Persister. Writes go through
// to the persister before MarkRead returns.
type Store struct {
	mu        sync.RWMutex
	persister Persister
	ids       map[string]struct{}
}

// New creates an empty Store. Call Load to populate it from p.
func New(p Persister) *Store {
	return &Store{
		persister: p,
		ids:       make(map[string]struct{}),
	}
}

// Load replaces the in-memory set with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	ids, err := s.persister.LoadReadState(ctx)
	if err != nil {
		return fmt.Errorf("loading read state: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	s.mu.Lock()
	s.ids = set
	s.mu.Unlock()
	return nil
}

// IsRead reports whether uniqueID has been marked read.
func (s *Store) IsRead(uniqueID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[uniqueID]
	return ok
}

// MarkRead adds uniqueID to the set and persists the result. Marking an id
// that is already read is a no-op. If persisting fails the in-memory set is
// left unchanged and the error is returned.
func (s *Store) MarkRead(ctx context.Context, uniqueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[uniqueID]; ok {
		return nil
	}

	next := make([]string, 0, len(s.ids)+1)
	for id := range s.ids {
		next = append(next, id)
	}
	next = append(next, uniqueID)
	sort.Strings(next)

	if err := s.persister.SaveReadState(ctx, next); err != nil {
		return fmt.Errorf("persisting read marker %q: %w", uniqueID, err)
	}

	s.ids[uniqueID] = struct{}{}
	return nil
}

// AllRead returns the read ids in sorted order.
func (s *Store) AllRead() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of read ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Flush writes the current set to the persister.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.persister.SaveReadState(ctx, s.AllRead()); err != nil {
		return fmt.Errorf("flushing read state: %w", err)
	}
	return nil
}
