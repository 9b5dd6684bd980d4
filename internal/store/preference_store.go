package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// GetPreference returns the value stored under key. The boolean is false
// when the key has never been set.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting preference %q: %w", key, err)
	}
	return value, true, nil
}

// SetPreference inserts or replaces the value stored under key.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting preference %q: %w", key, err)
	}
	return nil
}

// DeletePreference removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) DeletePreference(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM preferences WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting preference %q: %w", key, err)
	}
	return nil
}

// LoadReadState returns the persisted set of read notification ids.
func (s *SQLiteStore) LoadReadState(ctx context.Context) ([]string, error) {
	raw, ok, err := s.GetPreference(ctx, KeyReadNotifications)
	if err != nil || !ok {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("unmarshaling read state: %w", err)
	}
	return ids, nil
}

// SaveReadState replaces the persisted read set with ids in one statement,
// so a crash leaves either the old or the new set on disk.
func (s *SQLiteStore) SaveReadState(ctx context.Context, ids []string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	data, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("marshaling read state: %w", err)
	}
	return s.SetPreference(ctx, KeyReadNotifications, string(data))
}
