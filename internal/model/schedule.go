package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Waste types a collection slot can carry.
const (
	WasteGeneral    = "General Waste"
	WasteRecyclable = "Recyclables"
	WasteOrganic    = "Organic Waste"
)

// WasteTypes lists the waste types in display order.
var WasteTypes = []string{WasteGeneral, WasteRecyclable, WasteOrganic}

// Weekdays lists the schedule days in display order, Monday first.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ErrInvalidSchedule is returned when a schedule fails validation.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule is one weekly waste collection slot.
type Schedule struct {
	ID             string `json:"id"`
	Day            string `json:"day"`
	CollectionDate string `json:"collection_date,omitempty"`
	Type           string `json:"type"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

type scheduleWire struct {
	ID             json.RawMessage `json:"id"`
	MongoID        json.RawMessage `json:"_id"`
	Day            string          `json:"day"`
	CollectionDate string          `json:"collection_date"`
	Type           string          `json:"type"`
	StartTime      string          `json:"start_time"`
	EndTime        string          `json:"end_time"`
}

// DecodeSchedule converts one raw JSON record into a Schedule. A missing
// waste type reads as general waste.
func DecodeSchedule(raw []byte) (Schedule, error) {
	var w scheduleWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Schedule{}, fmt.Errorf("decoding schedule: %w", err)
	}

	id := rawID(w.ID)
	if id == "" {
		id = rawID(w.MongoID)
	}
	if id == "" {
		return Schedule{}, ErrMissingID
	}

	return Schedule{
		ID:             id,
		Day:            w.Day,
		CollectionDate: w.CollectionDate,
		Type:           firstNonEmpty(w.Type, WasteGeneral),
		StartTime:      w.StartTime,
		EndTime:        w.EndTime,
	}, nil
}

// Validate checks the day, waste type and time window of s.
func (s Schedule) Validate() error {
	if !slices.Contains(Weekdays, s.Day) {
		return fmt.Errorf("%w: unknown day %q", ErrInvalidSchedule, s.Day)
	}
	if !slices.Contains(WasteTypes, s.Type) {
		return fmt.Errorf("%w: unknown waste type %q", ErrInvalidSchedule, s.Type)
	}
	if s.CollectionDate != "" {
		if ParseTimestamp(s.CollectionDate).IsZero() {
			return fmt.Errorf("%w: collection date %q is not a date", ErrInvalidSchedule, s.CollectionDate)
		}
	}
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start time %q is not HH:MM", ErrInvalidSchedule, s.StartTime)
	}
	end, err := time.Parse("15:04", s.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end time %q is not HH:MM", ErrInvalidSchedule, s.EndTime)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: ends at %s before it starts at %s", ErrInvalidSchedule, s.EndTime, s.StartTime)
	}
	return nil
}

// DateLabel renders the collection date as "Jan 2", or "-" when unset or
// unparseable.
func (s Schedule) DateLabel() string {
	if s.CollectionDate == "" {
		return "-"
	}
	d := ParseTimestamp(s.CollectionDate)
	if d.IsZero() {
		return "-"
	}
	return d.Format("Jan 2")
}
