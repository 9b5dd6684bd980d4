package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/store"
	"github.com/nhle/ecotrack-console/tests/testutil"
)

func TestPreferences(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetPreference(ctx, store.KeyLastPage)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetPreference(ctx, store.KeyLastPage, "Reports"))
	require.NoError(t, s.SetPreference(ctx, store.KeyLastPage, "Users"))

	v, ok, err := s.GetPreference(ctx, store.KeyLastPage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Users", v)

	require.NoError(t, s.DeletePreference(ctx, store.KeyLastPage))
	_, ok, err = s.GetPreference(ctx, store.KeyLastPage)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)

	ids, err := s.LoadReadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.SaveReadState(ctx, []string{"Report:2", "User:5"}))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	ids, err = reopened.LoadReadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Report:2", "User:5"}, ids)
}

func TestReportSnapshotKeepsOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	reports := []model.Report{
		{ID: "b", Status: model.StatusResolved, IssueType: "Bulk Waste", CreatedAt: created},
		{ID: "a", Status: model.StatusInProgress, Attachments: []string{"https://x/a.png"}},
	}
	require.NoError(t, s.SaveReports(ctx, reports))

	got, err := s.LoadReports(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.True(t, created.Equal(got[0].CreatedAt))
	assert.Equal(t, model.StatusInProgress, got[1].Status)
	assert.Equal(t, []string{"https://x/a.png"}, got[1].Attachments)

	require.NoError(t, s.SaveReports(ctx, reports[1:]))
	got, err = s.LoadReports(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
