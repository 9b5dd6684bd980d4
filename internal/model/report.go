package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of an incident report.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved}

// ParseStatus maps a server or user supplied status string to a Status.
// Matching ignores case, spaces, dashes and underscores so that
// "in_progress", "InProgress" and "In Progress" all resolve the same way.
func ParseStatus(s string) (Status, bool) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(s))
	switch key {
	case "pending":
		return StatusPending, true
	case "inprogress":
		return StatusInProgress, true
	case "resolved":
		return StatusResolved, true
	default:
		return "", false
	}
}

// NormalizeStatus is ParseStatus with a display-safe fallback to Pending.
func NormalizeStatus(s string) Status {
	if st, ok := ParseStatus(s); ok {
		return st
	}
	return StatusPending
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Priority levels. Reports without a priority are treated as Low.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// DefaultIssueType is used when the server sends no issue type.
const DefaultIssueType = "Other Issue"

// IssueCategory is the display classification of a report's issue type.
type IssueCategory string

const (
	CategoryMissedCollection IssueCategory = "Missed Collection"
	CategoryIllegalDumping   IssueCategory = "Illegal Dumping"
	CategoryOverflowing      IssueCategory = "Overflowing Bin"
	CategoryDamaged          IssueCategory = "Damaged Bin"
	CategoryHazardous        IssueCategory = "Hazardous Waste"
	CategoryBulk             IssueCategory = "Bulk Waste"
	CategoryOther            IssueCategory = "Other"
)

// categoryKeywords is checked in order; the first keyword contained in the
// issue type wins.
var categoryKeywords = []struct {
	keyword  string
	category IssueCategory
}{
	{"missed", CategoryMissedCollection},
	{"illegal", CategoryIllegalDumping},
	{"overflowing", CategoryOverflowing},
	{"damaged", CategoryDamaged},
	{"hazardous", CategoryHazardous},
	{"bulk", CategoryBulk},
}

// Report is one incident submission as cached by the console.
type Report struct {
	// ID is the server-assigned identifier, rendered as text.
	ID string `json:"id"`

	// IssueType is the raw issue type label sent by the server.
	IssueType string `json:"issueType"`

	Status        Status    `json:"status"`
	SubmitterName string    `json:"submitterName"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"createdAt"`

	// Attachments are file URLs, already passed through the URL normalizer
	// when the report came from Load.
	Attachments []string `json:"attachments,omitempty"`

	Priority string `json:"priority"`
}

// Category classifies the issue type. Unrecognized types map to
// CategoryOther.
func (r Report) Category() IssueCategory {
	lower := strings.ToLower(r.IssueType)
	for _, ck := range categoryKeywords {
		if strings.Contains(lower, ck.keyword) {
			return ck.category
		}
	}
	return CategoryOther
}

// ShortID returns the last six characters of the id, as shown in tables.
func (r Report) ShortID() string {
	if len(r.ID) <= 6 {
		return r.ID
	}
	return r.ID[len(r.ID)-6:]
}

// Clone returns a copy that shares no slices with r.
func (r Report) Clone() Report {
	if r.Attachments != nil {
		r.Attachments = append([]string(nil), r.Attachments...)
	}
	return r
}

// ErrMissingID is returned when a record carries no usable identifier.
var ErrMissingID = errors.New("record has no id")

// reportWire accepts both the snake_case and camelCase shapes the admin API
// has produced over time.
type reportWire struct {
	ID            json.RawMessage `json:"id"`
	MongoID       json.RawMessage `json:"_id"`
	Type          string          `json:"type"`
	IssueType     string          `json:"issueType"`
	FullName      string          `json:"full_name"`
	SubmitterName string          `json:"submitterName"`
	Location      string          `json:"location"`
	Description   string          `json:"description"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
	CreatedAtAlt  string          `json:"createdAt"`
	Images        []string        `json:"images"`
	Attachments   []string        `json:"attachments"`
	Priority      string          `json:"priority"`
}

// DecodeReport converts one raw JSON record into a Report, applying the
// display defaults for status, priority and issue type. Attachment URLs are
// returned as sent; normalization is the caller's job.
func DecodeReport(raw []byte) (Report, error) {
	var w reportWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Report{}, fmt.Errorf("decoding report: %w", err)
	}

	id := rawID(w.MongoID)
	if id == "" {
		id = rawID(w.ID)
	}
	if id == "" {
		return Report{}, ErrMissingID
	}

	issueType := firstNonEmpty(w.IssueType, w.Type, DefaultIssueType)
	priority := firstNonEmpty(w.Priority, PriorityLow)

	attachments := w.Attachments
	if len(attachments) == 0 {
		attachments = w.Images
	}

	return Report{
		ID:            id,
		IssueType:     issueType,
		Status:        NormalizeStatus(w.Status),
		SubmitterName: firstNonEmpty(w.SubmitterName, w.FullName),
		Location:      w.Location,
		Description:   w.Description,
		CreatedAt:     ParseTimestamp(firstNonEmpty(w.CreatedAt, w.CreatedAtAlt)),
		Attachments:   append([]string(nil), attachments...),
		Priority:      priority,
	}, nil
}

// DecodeStatus extracts only the status field from a raw record. It
// reports false when the record has no recognizable status.
func DecodeStatus(raw []byte) (Status, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var w struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", false
	}
	return ParseStatus(w.Status)
}

// rawID renders a JSON string or number id as text.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// ParseTimestamp parses the timestamp formats emitted by the admin API.
// An unparseable value yields the zero time.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
