package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/ecotrack-console/internal/model"
)

// SaveReports replaces the cached report snapshot, preserving order.
func (s *SQLiteStore) SaveReports(ctx context.Context, reports []model.Report) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cached_reports"); err != nil {
		return fmt.Errorf("clearing report snapshot: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO cached_reports (position, id, payload, cached_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing snapshot statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, r := range reports {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling report %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, i, r.ID, string(payload), now); err != nil {
			return fmt.Errorf("caching report %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// LoadReports returns the cached report snapshot in its saved order.
func (s *SQLiteStore) LoadReports(ctx context.Context) ([]model.Report, error) {
	var payloads []string
	err := s.db.SelectContext(ctx, &payloads, "SELECT payload FROM cached_reports ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying report snapshot: %w", err)
	}

	reports := make([]model.Report, 0, len(payloads))
	for _, p := range payloads {
		var r model.Report
		if err := json.Unmarshal([]byte(p), &r); err != nil {
			return nil, fmt.Errorf("unmarshaling cached report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}
