package model

// SourceKind identifies which resource stream produced a notification.
type SourceKind string

const (
	SourceKindUser   SourceKind = "User"
	SourceKindReport SourceKind = "Report"
)

// UniqueID builds the read-tracking key for a notification. The kind prefix
// keeps ids from different streams disjoint even when the raw ids collide.
func UniqueID(kind SourceKind, sourceID string) string {
	return string(kind) + ":" + sourceID
}

// NotificationItem is a notification derived from a freshly fetched record.
// It is never stored server-side.
type NotificationItem struct {
	SourceKind SourceKind `json:"sourceKind"`
	SourceID   string     `json:"sourceId"`

	// UniqueID is SourceKind + ":" + SourceID.
	UniqueID string `json:"uniqueId"`

	// Summary is the display text.
	Summary string `json:"summary"`

	// Detail is a secondary display line (email, description).
	Detail string `json:"detail"`

	// IsRead is computed from the read-state store each time items are
	// handed out; it is never persisted.
	IsRead bool `json:"isRead"`
}

// Page returns the console page that opening this notification leads to.
func (n NotificationItem) Page() Page {
	if n.SourceKind == SourceKindUser {
		return PageUsers
	}
	return PageReports
}
