// Package users caches the registered accounts shown on the Users page.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/source"
	"github.com/nhle/ecotrack-console/internal/urlnorm"
)

// FilterAll disables a role or status filter.
const FilterAll = "All"

// ErrNotFound is returned when a user id is not cached.
var ErrNotFound = errors.New("user not found")

// Filter selects a subset of the cached users.
type Filter struct {
	Role   string
	Status string

	// Search matches name or email, case-insensitively.
	Search string
}

// Active reports whether any part of f narrows the list.
func (f Filter) Active() bool {
	return !isAll(f.Role) || !isAll(f.Status) || f.Search != ""
}

func (f Filter) matches(u model.User) bool {
	if !isAll(f.Role) && u.Role != f.Role {
		return false
	}
	if !isAll(f.Status) && u.Status != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(u.FullName), term) ||
		strings.Contains(strings.ToLower(u.Email), term)
}

func isAll(v string) bool { return v == "" || v == FilterAll }

// Stats are the counters shown above the user table.
type Stats struct {
	Total    int
	Active   int
	Admins   int
	Inactive int
}

// Directory owns the cached user list. Unlike reports, deletes are not
// optimistic: the user is removed only after the server confirms.
type Directory struct {
	fetcher source.Fetcher
	origin  string
	logger  *log.Logger

	mu     sync.RWMutex
	users  []model.User
	seq    uint64
	loaded uint64
}

// New creates an empty Directory.
func New(fetcher source.Fetcher, origin string, logger *log.Logger) *Directory {
	return &Directory{
		fetcher: fetcher,
		origin:  origin,
		logger:  logging.OrDiscard(logger),
	}
}

// Load replaces the cached users. On failure the cache is kept.
func (d *Directory) Load(ctx context.Context) error {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	records, err := d.fetcher.FetchCollection(ctx, source.ResourceUsers)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	users := make([]model.User, 0, len(records))
	for i, raw := range records {
		u, err := model.DecodeUser(raw)
		if err != nil {
			d.logger.Warn("skipping user record", "index", i, "err", err)
			continue
		}
		u.Avatar = urlnorm.Normalize(u.Avatar, d.origin)
		users = append(users, u)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq <= d.loaded {
		return nil
	}
	d.loaded = seq
	d.users = users
	d.logger.Info("users loaded", "count", len(users))
	return nil
}

// Delete asks the server to delete a user and drops it from the cache once
// the server agrees.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if _, ok := d.Get(id); !ok {
		return fmt.Errorf("deleting user %s: %w", id, ErrNotFound)
	}

	if _, err := d.fetcher.MutateResource(ctx, source.ResourceUsers, id, source.OpDelete, nil); err != nil {
		d.logger.Warn("user delete rejected", "id", id, "reason", source.Reason(err))
		return fmt.Errorf("deleting user %s: %w", id, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.users {
		if d.users[i].ID == id {
			d.users = append(d.users[:i:i], d.users[i+1:]...)
			break
		}
	}
	d.logger.Info("user deleted", "id", id)
	return nil
}

// Get returns the cached user with the given id.
func (d *Directory) Get(id string) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

// List returns the users matching f in fetch order.
func (d *Directory) List(f Filter) []model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.User, 0, len(d.users))
	for _, u := range d.users {
		if f.matches(u) {
			out = append(out, u)
		}
	}
	return out
}

// Stats counts the cached users.
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st := Stats{Total: len(d.users)}
	for _, u := range d.users {
		switch u.Status {
		case model.UserActive:
			st.Active++
		case model.UserInactive:
			st.Inactive++
		}
		if u.Role == model.RoleAdmin {
			st.Admins++
		}
	}
	return st
}
