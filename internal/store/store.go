package store

import (
	"context"

	"github.com/nhle/ecotrack-console/internal/model"
)

// Preference keys.
const (
	// KeyReadNotifications holds the JSON array of read notification ids.
	KeyReadNotifications = "read_notification_ids"

	// KeyLastPage holds the last selected console page.
	KeyLastPage = "last_page"
)

// Store defines the local persistence interface: key-value preferences,
// the read-notification set and the last known report collection.
type Store interface {
	// === Preferences ===

	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error

	// === Read state ===

	LoadReadState(ctx context.Context) ([]string, error)
	SaveReadState(ctx context.Context, ids []string) error

	// === Report snapshot ===

	SaveReports(ctx context.Context, reports []model.Report) error
	LoadReports(ctx context.Context) ([]model.Report, error)

	Close() error
}
