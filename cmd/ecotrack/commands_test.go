package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/notify"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/schedules"
	"github.com/nhle/ecotrack-console/internal/source"
	"github.com/nhle/ecotrack-console/internal/source/sourcetest"
	"github.com/nhle/ecotrack-console/internal/users"
	"github.com/nhle/ecotrack-console/tests/testutil"
)

type rec map[string]any

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newTestRuntime(t *testing.T, fake *sourcetest.Fake) *runtime {
	t.Helper()
	db := testutil.NewTestStore(t)
	reads := testutil.NewReadState(t, db)

	logger := logging.Discard()
	const origin = "https://console.example.org"
	return &runtime{
		cfg:       &model.AppConfig{},
		logger:    logger,
		logCloser: nopCloser{},
		store:     db,
		reads:     reads,
		reports:   reports.New(fake, reports.Options{Origin: origin, Snapshots: db}),
		users:     users.New(fake, origin, logger),
		schedules: schedules.New(fake, logger),
		notify:    notify.New(fake, reads, logger),
	}
}

func execute(t *testing.T, rt *runtime, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWith(&rootOptions{rt: rt})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportsListFiltersByStatus(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports,
		rec{"id": "r1", "type": "Illegal Dumping", "status": "Pending", "location": "Riverside"},
		rec{"id": "r2", "type": "Air Quality", "status": "Resolved", "location": "Harbor"},
	)

	out, err := execute(t, newTestRuntime(t, fake), "reports", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Riverside")
	assert.NotContains(t, out, "Harbor")
}

func TestReportsListRejectsUnknownStatus(t *testing.T) {
	_, err := execute(t, newTestRuntime(t, &sourcetest.Fake{}), "reports", "list", "--status", "closed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestReportsStatusUpdatesServer(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports, rec{"id": "r1", "status": "Pending"})

	out, err := execute(t, newTestRuntime(t, fake), "reports", "status", "r1", "in_progress")
	require.NoError(t, err)
	assert.Contains(t, out, "In Progress")

	calls := fake.Mutations()
	require.Len(t, calls, 1)
	assert.Equal(t, "r1", calls[0].ID)
}

func TestReportsStatusSurfacesRejection(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports, rec{"id": "r1", "status": "Pending"})
	fake.MutateFunc = func(context.Context, sourcetest.MutateCall) (source.RawRecord, error) {
		return nil, sourcetest.Err(source.ServerRejected, "locked")
	}

	_, err := execute(t, newTestRuntime(t, fake), "reports", "status", "r1", "resolved")
	require.Error(t, err)
	kind, ok := source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.ServerRejected, kind)
}

func TestNotificationsListAndAckAll(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceNewUsers, rec{"id": "u1", "fullName": "Mai Tran"})
	fake.SetCollection(source.ResourceNewReports, rec{"id": "r9", "type": "Noise"})
	rt := newTestRuntime(t, fake)

	out, err := execute(t, rt, "notifications", "list", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "Mai Tran")
	assert.Contains(t, out, "2 unread")

	out, err = execute(t, rt, "notifications", "ack", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Marked 2")
}

func TestNotificationsAckNeedsTarget(t *testing.T) {
	_, err := execute(t, newTestRuntime(t, &sourcetest.Fake{}), "notifications", "ack")
	require.Error(t, err)
}

func TestUsersListFiltersByRole(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceUsers,
		rec{"id": "u1", "fullName": "Admin One", "email": "a@example.org", "role": "Admin", "status": "Active"},
		rec{"id": "u2", "fullName": "Plain User", "email": "p@example.org", "role": "User", "status": "Active"},
	)

	out, err := execute(t, newTestRuntime(t, fake), "users", "list", "--role", "Admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin One")
	assert.NotContains(t, out, "Plain User")
}

func TestSchedulesListShowsEmptyDays(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceSchedules,
		rec{"id": "s1", "day": "Tuesday", "type": "Recyclables", "start_time": "07:00", "end_time": "09:00"},
	)

	out, err := execute(t, newTestRuntime(t, fake), "schedules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Recyclables")
	assert.Contains(t, out, "07:00 - 09:00")
	assert.Contains(t, out, "No Collection")

	out, err = execute(t, newTestRuntime(t, fake), "schedules", "list", "--day", "mon")
	require.NoError(t, err)
	assert.NotContains(t, out, "Recyclables")
}

func TestSchedulesEditSendsMergedSlot(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceSchedules,
		rec{"id": "s1", "day": "Tuesday", "type": "Recyclables", "start_time": "07:00", "end_time": "09:00"},
	)

	out, err := execute(t, newTestRuntime(t, fake), "schedules", "edit", "s1", "--day", "wed", "--type", "organic")
	require.NoError(t, err)
	assert.Contains(t, out, "Wednesday Organic Waste")

	calls := fake.Mutations()
	require.Len(t, calls, 1)
	assert.Equal(t, source.OpUpdate, calls[0].Op)
	payload := calls[0].Payload.(map[string]string)
	assert.Equal(t, "Wednesday", payload["day"])
	assert.Equal(t, "07:00", payload["start_time"])
}

func TestSchedulesEditRejectsBadWindow(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceSchedules,
		rec{"id": "s1", "day": "Tuesday", "start_time": "07:00", "end_time": "09:00"},
	)

	_, err := execute(t, newTestRuntime(t, fake), "schedules", "edit", "s1", "--end", "06:00")
	require.ErrorIs(t, err, model.ErrInvalidSchedule)
	assert.Empty(t, fake.Mutations())
}
