package sync_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/notify"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/schedules"
	"github.com/nhle/ecotrack-console/internal/source"
	"github.com/nhle/ecotrack-console/internal/source/sourcetest"
	ecosync "github.com/nhle/ecotrack-console/internal/sync"
	"github.com/nhle/ecotrack-console/internal/users"
	"github.com/nhle/ecotrack-console/tests/testutil"
)

func nextResult(t *testing.T, p *ecosync.Poller) ecosync.SyncResultMsg {
	t.Helper()
	ch := make(chan ecosync.SyncResultMsg, 1)
	go func() {
		if msg, ok := p.WaitForNextResult()().(ecosync.SyncResultMsg); ok {
			ch <- msg
		}
	}()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync result")
		return ecosync.SyncResultMsg{}
	}
}

func TestRunOnceRetriesUnreachable(t *testing.T) {
	p := ecosync.New(ecosync.Options{RetryAttempts: 3, RetryDelay: time.Millisecond})

	var calls atomic.Int32
	p.Register(ecosync.Job{
		Name: ecosync.JobReports,
		Run: func(context.Context) error {
			if calls.Add(1) < 3 {
				return sourcetest.Err(source.Unreachable, "refused")
			}
			return nil
		},
	})

	require.NoError(t, p.RunOnce(context.Background(), ecosync.JobReports))
	assert.Equal(t, int32(3), calls.Load())

	st := p.GetStatuses()
	require.Len(t, st, 1)
	assert.Equal(t, ecosync.SyncIdle, st[0].State)
	assert.False(t, st[0].LastSync.IsZero())
}

func TestRunOnceDoesNotRetryOtherKinds(t *testing.T) {
	p := ecosync.New(ecosync.Options{RetryAttempts: 5, RetryDelay: time.Millisecond})

	var calls atomic.Int32
	p.Register(ecosync.Job{
		Name: ecosync.JobUsers,
		Run: func(context.Context) error {
			calls.Add(1)
			return sourcetest.Err(source.ServerRejected, "bad request")
		},
	})

	err := p.RunOnce(context.Background(), ecosync.JobUsers)
	require.Error(t, err)
	kind, ok := source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.ServerRejected, kind)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ecosync.SyncError, p.GetStatuses()[0].State)

	assert.Error(t, p.RunOnce(context.Background(), "missing"))
}

func TestPollerReportsResultsAndAuthErrors(t *testing.T) {
	p := ecosync.New(ecosync.Options{RetryDelay: time.Millisecond})
	p.Register(ecosync.Job{
		Name:     ecosync.JobNotifications,
		Interval: time.Hour,
		Run: func(context.Context) error {
			return sourcetest.Err(source.Unauthorized, "expired")
		},
	})

	require.NotNil(t, p.Start())
	defer p.Stop()
	assert.Nil(t, p.Start(), "second Start is a no-op")

	msg := nextResult(t, p)
	assert.Equal(t, ecosync.JobNotifications, msg.Job)
	require.Error(t, msg.Error)
	require.NotNil(t, msg.AuthError)
	assert.Equal(t, ecosync.JobNotifications, msg.AuthError.Job)
}

func TestRefreshJobTriggersRun(t *testing.T) {
	p := ecosync.New(ecosync.Options{})

	var calls atomic.Int32
	p.Register(ecosync.Job{
		Name:     ecosync.JobReports,
		Interval: time.Hour,
		Run: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	p.Start()
	defer p.Stop()

	first := nextResult(t, p)
	assert.NoError(t, first.Error)

	p.RefreshJob(ecosync.JobReports)
	nextResult(t, p)
	p.RefreshAll()
	nextResult(t, p)
	assert.Equal(t, int32(3), calls.Load())
}

func TestStopEndsPolling(t *testing.T) {
	p := ecosync.New(ecosync.Options{})

	var calls atomic.Int32
	p.Register(ecosync.Job{
		Name:     ecosync.JobUsers,
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	p.Start()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	p.Stop()

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
	p.Stop()
}

func TestRegisterStandardJobs(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports, map[string]any{"id": 1, "status": "Pending"})
	fake.SetCollection(source.ResourceUsers, map[string]any{"id": 7, "fullName": "Ana"})
	fake.SetCollection(source.ResourceSchedules, map[string]any{"id": 3, "day": "Monday"})
	fake.SetCollection(source.ResourceNewReports, map[string]any{"id": 1})
	fake.FailFetch(source.ResourceNewUsers, errors.New("boom"))

	reads := testutil.NewReadState(t, nil)
	m := reports.New(fake, reports.Options{})
	agg := notify.New(fake, reads, nil)
	dir := users.New(fake, "", nil)
	board := schedules.New(fake, nil)

	p := ecosync.New(ecosync.Options{})
	ecosync.Register(p, model.SyncConfig{ReportIntervalSec: 60, NotificationIntervalSec: 30}, m, agg, dir, board)

	ctx := context.Background()
	for _, job := range []ecosync.JobName{ecosync.JobReports, ecosync.JobNotifications, ecosync.JobUsers, ecosync.JobSchedules} {
		require.NoError(t, p.RunOnce(ctx, job), job)
	}

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, agg.UnreadCount())
	assert.Equal(t, 1, dir.Stats().Total)
	assert.Len(t, board.List(), 1)
	assert.Len(t, p.GetStatuses(), 4)
}
