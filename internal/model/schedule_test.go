package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/model"
)

func TestDecodeSchedule(t *testing.T) {
	s, err := model.DecodeSchedule([]byte(`{"_id":"s1","day":"Monday","collection_date":"2026-03-02T00:00:00.000Z","start_time":"07:00","end_time":"09:00"}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, model.WasteGeneral, s.Type)
	assert.Equal(t, "Mar 2", s.DateLabel())

	_, err = model.DecodeSchedule([]byte(`{"day":"Monday"}`))
	assert.ErrorIs(t, err, model.ErrMissingID)
}

func TestScheduleValidate(t *testing.T) {
	ok := model.Schedule{Day: "Friday", Type: model.WasteOrganic, StartTime: "07:00", EndTime: "09:30"}
	require.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*model.Schedule)
	}{
		{"unknown day", func(s *model.Schedule) { s.Day = "Funday" }},
		{"unknown type", func(s *model.Schedule) { s.Type = "Glass" }},
		{"bad date", func(s *model.Schedule) { s.CollectionDate = "next week" }},
		{"bad start", func(s *model.Schedule) { s.StartTime = "7am" }},
		{"end before start", func(s *model.Schedule) { s.EndTime = "06:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), model.ErrInvalidSchedule)
		})
	}
}

func TestScheduleDateLabelUnset(t *testing.T) {
	assert.Equal(t, "-", model.Schedule{}.DateLabel())
	assert.Equal(t, "-", model.Schedule{CollectionDate: "soon"}.DateLabel())
}
