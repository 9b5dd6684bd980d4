// Package schedules caches the weekly waste collection slots.
package schedules

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/source"
)

// ErrNotFound is returned when a schedule id is not cached.
var ErrNotFound = errors.New("schedule not found")

// Day is one weekday column of the board.
type Day struct {
	Name string

	// Date is the collection date of the first slot, or "-".
	Date  string
	Slots []model.Schedule
}

// Board owns the cached schedules. Edits are pessimistic like user deletes:
// the cache changes only after the server confirms.
type Board struct {
	fetcher source.Fetcher
	logger  *log.Logger

	mu        sync.RWMutex
	schedules []model.Schedule
	seq       uint64
	loaded    uint64
}

// New creates an empty Board.
func New(fetcher source.Fetcher, logger *log.Logger) *Board {
	return &Board{fetcher: fetcher, logger: logging.OrDiscard(logger)}
}

// Load replaces the cached schedules. On failure the cache is kept.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	records, err := b.fetcher.FetchCollection(ctx, source.ResourceSchedules)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}

	out := make([]model.Schedule, 0, len(records))
	for i, raw := range records {
		s, err := model.DecodeSchedule(raw)
		if err != nil {
			b.logger.Warn("skipping schedule record", "index", i, "err", err)
			continue
		}
		out = append(out, s)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq <= b.loaded {
		return nil
	}
	b.loaded = seq
	b.schedules = out
	b.logger.Info("schedules loaded", "count", len(out))
	return nil
}

// Get returns the cached schedule with the given id.
func (b *Board) Get(id string) (model.Schedule, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.index(id)
	if i < 0 {
		return model.Schedule{}, false
	}
	return b.schedules[i], true
}

// List returns every cached schedule in fetch order.
func (b *Board) List() []model.Schedule {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.schedules)
}

// Week groups the cached schedules by weekday, Monday first. Days with no
// slots are kept so the board always has seven columns. Slots with an
// unknown day are left out.
func (b *Board) Week() []Day {
	b.mu.RLock()
	defer b.mu.RUnlock()

	week := make([]Day, len(model.Weekdays))
	for i, name := range model.Weekdays {
		week[i] = Day{Name: name, Date: "-"}
		for _, s := range b.schedules {
			if s.Day != name {
				continue
			}
			if len(week[i].Slots) == 0 {
				week[i].Date = s.DateLabel()
			}
			week[i].Slots = append(week[i].Slots, s)
		}
	}
	return week
}

// Update validates s and sends it to the server. The cached copy is
// replaced once the server accepts it.
func (b *Board) Update(ctx context.Context, s model.Schedule) error {
	if _, ok := b.Get(s.ID); !ok {
		return fmt.Errorf("updating schedule %s: %w", s.ID, ErrNotFound)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("updating schedule %s: %w", s.ID, err)
	}

	payload := map[string]string{
		"day":             s.Day,
		"collection_date": s.CollectionDate,
		"type":            s.Type,
		"start_time":      s.StartTime,
		"end_time":        s.EndTime,
	}
	if _, err := b.fetcher.MutateResource(ctx, source.ResourceSchedules, s.ID, source.OpUpdate, payload); err != nil {
		b.logger.Warn("schedule update rejected", "id", s.ID, "reason", source.Reason(err))
		return fmt.Errorf("updating schedule %s: %w", s.ID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(s.ID); i >= 0 {
		b.schedules[i] = s
	}
	b.logger.Info("schedule updated", "id", s.ID, "day", s.Day, "type", s.Type)
	return nil
}

// Delete asks the server to delete a schedule and drops it from the cache
// once the server agrees.
func (b *Board) Delete(ctx context.Context, id string) error {
	if _, ok := b.Get(id); !ok {
		return fmt.Errorf("deleting schedule %s: %w", id, ErrNotFound)
	}

	if _, err := b.fetcher.MutateResource(ctx, source.ResourceSchedules, id, source.OpDelete, nil); err != nil {
		b.logger.Warn("schedule delete rejected", "id", id, "reason", source.Reason(err))
		return fmt.Errorf("deleting schedule %s: %w", id, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		b.schedules = slices.Delete(b.schedules, i, i+1)
	}
	b.logger.Info("schedule deleted", "id", id)
	return nil
}

func (b *Board) index(id string) int {
	return slices.IndexFunc(b.schedules, func(s model.Schedule) bool { return s.ID == id })
}
