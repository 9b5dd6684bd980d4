package reports_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/source"
	"github.com/nhle/ecotrack-console/internal/source/sourcetest"
	"github.com/nhle/ecotrack-console/tests/testutil"
)

type rec map[string]any

func newLoadedManager(t *testing.T, records ...any) (*reports.Manager, *sourcetest.Fake) {
	t.Helper()
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports, records...)
	m := reports.New(fake, reports.Options{Origin: "https://console.example.org"})
	require.NoError(t, m.Load(context.Background()))
	return m, fake
}

func statusOf(t *testing.T, m *reports.Manager, id string) model.Status {
	t.Helper()
	r, ok := m.Get(id)
	require.True(t, ok, "report %s not cached", id)
	return r.Status
}

func rejectAll(kind source.ErrorKind, reason string) func(context.Context, sourcetest.MutateCall) (source.RawRecord, error) {
	return func(context.Context, sourcetest.MutateCall) (source.RawRecord, error) {
		return nil, sourcetest.Err(kind, reason)
	}
}

func TestGetFilteredPendingScenario(t *testing.T) {
	m, _ := newLoadedManager(t,
		rec{"id": 1, "status": "Pending"},
		rec{"id": 2, "status": "Resolved"},
	)

	got := m.GetFiltered(reports.Criteria{StatusFilter: "Pending", SearchTerm: ""})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, model.StatusPending, got[0].Status)
}

func TestLoadDecodesAndNormalizes(t *testing.T) {
	m, _ := newLoadedManager(t,
		rec{"_id": "a1", "type": "Bulk Waste", "full_name": "Ana", "status": "in_progress",
			"images": []string{"http://localhost:5000/uploads/x.png", "/uploads/y.png"}},
		rec{"status": "Pending"},
		`{"id": "a2", "status": "weird"}`,
		`not json`,
		rec{"id": "a1", "status": "Resolved"},
	)

	all := m.All()
	require.Equal(t, []string{"a1", "a2"}, ids(all))

	first := all[0]
	assert.Equal(t, "Bulk Waste", first.IssueType)
	assert.Equal(t, "Ana", first.SubmitterName)
	assert.Equal(t, model.StatusInProgress, first.Status)
	assert.Equal(t, model.PriorityLow, first.Priority)
	assert.Equal(t, []string{
		"https://console.example.org/uploads/x.png",
		"https://console.example.org/uploads/y.png",
	}, first.Attachments)

	assert.Equal(t, model.StatusPending, all[1].Status)
	assert.Equal(t, model.DefaultIssueType, all[1].IssueType)
	assert.False(t, m.LastLoaded().IsZero())
}

func TestLoadFailureKeepsCache(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})

	fake.FailFetch(source.ResourceReports, sourcetest.Err(source.Unreachable, "connection refused"))
	err := m.Load(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsUnreachable(err))

	got := m.GetFiltered(reports.AllReports)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestUpdateStatusConfirmed(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})
	fake.MutateFunc = func(_ context.Context, call sourcetest.MutateCall) (source.RawRecord, error) {
		return source.RawRecord(`{"id": 1, "status": "In Progress"}`), nil
	}

	require.NoError(t, m.UpdateStatus(context.Background(), "1", model.StatusInProgress))
	assert.Equal(t, model.StatusInProgress, statusOf(t, m, "1"))

	calls := fake.Mutations()
	require.Len(t, calls, 1)
	assert.Equal(t, source.ResourceReports, calls[0].Resource)
	assert.Equal(t, source.OpUpdate, calls[0].Op)
	assert.Equal(t, map[string]string{"status": "In Progress"}, calls[0].Payload)

	op, ok := m.LastOperation("1")
	require.True(t, ok)
	assert.Equal(t, reports.OpConfirmed, op.State)
	assert.Empty(t, m.PendingOperations())
}

func TestUpdateStatusAdoptsServerStatus(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})
	fake.MutateFunc = func(context.Context, sourcetest.MutateCall) (source.RawRecord, error) {
		return source.RawRecord(`{"status": "resolved"}`), nil
	}

	require.NoError(t, m.UpdateStatus(context.Background(), "1", model.StatusInProgress))
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))
}

func TestUpdateStatusRejectedReverts(t *testing.T) {
	m, fake := newLoadedManager(t,
		rec{"id": 1, "status": "Pending"},
		rec{"id": 2, "status": "Resolved"},
	)
	fake.MutateFunc = rejectAll(source.ServerRejected, "report is locked")

	err := m.UpdateStatus(context.Background(), "1", model.StatusResolved)
	require.Error(t, err)
	assert.ErrorIs(t, err, reports.ErrRolledBack)
	kind, ok := source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.ServerRejected, kind)
	assert.Equal(t, "report is locked", source.Reason(err))

	got := m.GetFiltered(reports.AllReports)
	require.Len(t, got, 2)
	assert.Equal(t, model.StatusPending, got[0].Status)

	op, ok := m.LastOperation("1")
	require.True(t, ok)
	assert.Equal(t, reports.OpRolledBack, op.State)
	assert.Equal(t, model.StatusPending, op.From)
	assert.Equal(t, model.StatusResolved, op.To)
	assert.Error(t, op.Err)
}

func TestUpdateStatusUnauthorizedIsDistinguishable(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})
	fake.MutateFunc = rejectAll(source.Unauthorized, "token expired")

	err := m.UpdateStatus(context.Background(), "1", model.StatusResolved)
	require.Error(t, err)
	assert.True(t, source.IsUnauthorized(err))
	assert.ErrorIs(t, err, reports.ErrRolledBack)
	assert.Equal(t, model.StatusPending, statusOf(t, m, "1"))
}

func TestUpdateStatusValidation(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})

	err := m.UpdateStatus(context.Background(), "1", model.Status("Archived"))
	assert.ErrorIs(t, err, reports.ErrInvalidStatus)

	err = m.UpdateStatus(context.Background(), "404", model.StatusResolved)
	assert.ErrorIs(t, err, reports.ErrNotFound)

	// Same status with nothing in flight is a no-op.
	require.NoError(t, m.UpdateStatus(context.Background(), "1", model.StatusPending))
	assert.Empty(t, fake.Mutations())
}

func TestDeleteConfirmed(t *testing.T) {
	m, fake := newLoadedManager(t,
		rec{"id": 1, "status": "Pending"},
		rec{"id": 2, "status": "Pending"},
	)

	require.NoError(t, m.Delete(context.Background(), "1"))
	assert.Equal(t, []string{"2"}, ids(m.All()))

	calls := fake.Mutations()
	require.Len(t, calls, 1)
	assert.Equal(t, source.OpDelete, calls[0].Op)
	assert.Equal(t, "1", calls[0].ID)

	assert.ErrorIs(t, m.Delete(context.Background(), "1"), reports.ErrNotFound)
}

func TestDeleteRejectedRestoresIndex(t *testing.T) {
	m, fake := newLoadedManager(t,
		rec{"id": "a", "status": "Pending"},
		rec{"id": "b", "status": "Resolved", "images": []string{"/uploads/b.png"}},
		rec{"id": "c", "status": "Pending"},
	)
	fake.MutateFunc = rejectAll(source.ServerRejected, "cannot delete")

	err := m.Delete(context.Background(), "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, reports.ErrRolledBack)

	got := m.GetFiltered(reports.Criteria{StatusFilter: "All", SearchTerm: ""})
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, []string{"https://console.example.org/uploads/b.png"}, got[1].Attachments)
}

func TestDeleteVisibleImmediately(t *testing.T) {
	m, fake := newLoadedManager(t,
		rec{"id": "a", "status": "Pending"},
		rec{"id": "b", "status": "Pending"},
	)

	release := make(chan struct{})
	fake.MutateFunc = func(context.Context, sourcetest.MutateCall) (source.RawRecord, error) {
		<-release
		return nil, sourcetest.Err(source.Unreachable, "timeout")
	}

	done := make(chan error, 1)
	go func() { done <- m.Delete(context.Background(), "a") }()

	require.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, m.PendingOperations(), 1)

	close(release)
	require.Error(t, <-done)
	assert.Equal(t, []string{"a", "b"}, ids(m.All()))
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})

	var mu sync.Mutex
	gates := map[string]chan struct{}{
		"In Progress": make(chan struct{}),
		"Resolved":    make(chan struct{}),
	}
	fake.MutateFunc = func(_ context.Context, call sourcetest.MutateCall) (source.RawRecord, error) {
		status := call.Payload.(map[string]string)["status"]
		mu.Lock()
		gate := gates[status]
		mu.Unlock()
		<-gate
		return source.RawRecord(`{"status": "` + status + `"}`), nil
	}

	ctx := context.Background()
	first := make(chan error, 1)
	go func() { first <- m.UpdateStatus(ctx, "1", model.StatusInProgress) }()
	require.Eventually(t, func() bool { return len(fake.Mutations()) == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- m.UpdateStatus(ctx, "1", model.StatusResolved) }()
	require.Eventually(t, func() bool { return len(fake.Mutations()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))

	close(gates["Resolved"])
	require.NoError(t, <-second)
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))

	// The older success arrives last and must not clobber the newer value.
	close(gates["In Progress"])
	require.NoError(t, <-first)
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))
}

func TestStaleFailureDoesNotRevertNewerUpdate(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})

	firstGate := make(chan struct{})
	fake.MutateFunc = func(_ context.Context, call sourcetest.MutateCall) (source.RawRecord, error) {
		if call.Payload.(map[string]string)["status"] == "In Progress" {
			<-firstGate
			return nil, sourcetest.Err(source.ServerRejected, "conflict")
		}
		return nil, nil
	}

	ctx := context.Background()
	first := make(chan error, 1)
	go func() { first <- m.UpdateStatus(ctx, "1", model.StatusInProgress) }()
	require.Eventually(t, func() bool { return len(fake.Mutations()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.UpdateStatus(ctx, "1", model.StatusResolved))
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))

	close(firstGate)
	require.Error(t, <-first)
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))
}

func TestConcurrentUpdatesOnDifferentIDs(t *testing.T) {
	m, fake := newLoadedManager(t,
		rec{"id": 1, "status": "Pending"},
		rec{"id": 2, "status": "Pending"},
		rec{"id": 3, "status": "Pending"},
	)
	fake.MutateFunc = func(_ context.Context, call sourcetest.MutateCall) (source.RawRecord, error) {
		if call.ID == "2" {
			return nil, sourcetest.Err(source.ServerRejected, "nope")
		}
		return nil, nil
	}

	var wg sync.WaitGroup
	for _, id := range []string{"1", "2", "3"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = m.UpdateStatus(context.Background(), id, model.StatusResolved)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))
	assert.Equal(t, model.StatusPending, statusOf(t, m, "2"))
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "3"))
	assert.Equal(t, 3, m.Len())
}

func TestSupersededLoadIsDiscarded(t *testing.T) {
	fake := &sourcetest.Fake{}
	m := reports.New(fake, reports.Options{})

	slow := make(chan struct{})
	var calls int
	var mu sync.Mutex
	fake.FetchFunc = func(context.Context, source.Resource) ([]source.RawRecord, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			<-slow
			return sourcetest.Records(rec{"id": "old", "status": "Pending"}), nil
		}
		return sourcetest.Records(rec{"id": "new", "status": "Pending"}), nil
	}

	ctx := context.Background()
	first := make(chan error, 1)
	go func() { first <- m.Load(ctx) }()
	require.Eventually(t, func() bool { return len(fake.Fetches()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Load(ctx))
	assert.Equal(t, []string{"new"}, ids(m.All()))

	close(slow)
	require.NoError(t, <-first)
	assert.Equal(t, []string{"new"}, ids(m.All()))
}

func TestLoadKeepsPendingUpdate(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": 1, "status": "Pending"})

	release := make(chan struct{})
	fake.MutateFunc = func(context.Context, sourcetest.MutateCall) (source.RawRecord, error) {
		<-release
		return nil, sourcetest.Err(source.ServerRejected, "rejected")
	}

	done := make(chan error, 1)
	go func() { done <- m.UpdateStatus(context.Background(), "1", model.StatusResolved) }()
	require.Eventually(t, func() bool { return len(fake.Mutations()) == 1 }, time.Second, 5*time.Millisecond)

	// The server still reports Pending; the in-flight change stays visible.
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "1"))

	close(release)
	require.Error(t, <-done)
	assert.Equal(t, model.StatusPending, statusOf(t, m, "1"))
}

func TestStats(t *testing.T) {
	m, _ := newLoadedManager(t,
		rec{"id": 1, "status": "Pending"},
		rec{"id": 2, "status": "Resolved"},
		rec{"id": 3, "status": "Pending"},
	)

	st := m.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.PendingReviews())
	assert.Equal(t, 0, st.ByStatus[model.StatusInProgress])
	assert.Equal(t, 1, st.ByStatus[model.StatusResolved])
}

func TestSnapshotRestore(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports,
		rec{"id": "r1", "status": "Resolved"},
		rec{"id": "r2", "status": "Pending"},
	)
	require.NoError(t, reports.New(fake, reports.Options{Snapshots: db}).Load(ctx))

	offline := &sourcetest.Fake{}
	offline.FailFetch(source.ResourceReports, sourcetest.Err(source.Unreachable, "offline"))
	m := reports.New(offline, reports.Options{Snapshots: db})

	require.NoError(t, m.Restore(ctx))
	assert.Error(t, m.Load(ctx))
	assert.Equal(t, []string{"r1", "r2"}, ids(m.All()))
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "r1"))
}

type failingSnapshots struct{}

func (failingSnapshots) SaveReports(context.Context, []model.Report) error {
	return errors.New("read-only")
}

func (failingSnapshots) LoadReports(context.Context) ([]model.Report, error) {
	return nil, errors.New("read-only")
}

func TestSnapshotFailuresDoNotFailLoad(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports, rec{"id": 1})
	m := reports.New(fake, reports.Options{Snapshots: failingSnapshots{}})

	assert.Error(t, m.Restore(context.Background()))
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, 1, m.Len())
}

func TestChangesSignalsOptimisticEditAndRollback(t *testing.T) {
	m, fake := newLoadedManager(t, rec{"id": "a", "status": "Pending"})
	drain := func() {
		select {
		case <-m.Changes():
		default:
		}
	}
	drain()

	release := make(chan struct{})
	fake.MutateFunc = func(context.Context, sourcetest.MutateCall) (source.RawRecord, error) {
		<-release
		return nil, sourcetest.Err(source.ServerRejected, "locked")
	}

	done := make(chan error, 1)
	go func() { done <- m.UpdateStatus(context.Background(), "a", model.StatusResolved) }()

	select {
	case <-m.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal for optimistic edit")
	}
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "a"))

	close(release)
	require.ErrorIs(t, <-done, reports.ErrRolledBack)

	select {
	case <-m.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal for rollback")
	}
	assert.Equal(t, model.StatusPending, statusOf(t, m, "a"))
}

func mutationKey(op source.Operation, id string) string {
	return op.String() + ":" + id
}

// gatedMutations blocks each mutation until its key ("<op>:<id>") is
// released, then returns the scripted error.
type gatedMutations struct {
	mu    sync.Mutex
	gates map[string]chan error
}

func newGatedMutations(keys ...string) *gatedMutations {
	g := &gatedMutations{gates: make(map[string]chan error)}
	for _, k := range keys {
		g.gates[k] = make(chan error, 1)
	}
	return g
}

func (g *gatedMutations) mutate(_ context.Context, call sourcetest.MutateCall) (source.RawRecord, error) {
	g.mu.Lock()
	gate := g.gates[mutationKey(call.Op, call.ID)]
	g.mu.Unlock()
	if gate == nil {
		return nil, nil
	}
	return nil, <-gate
}

func (g *gatedMutations) release(key string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[key] <- err
}

func TestOverlappingRejectedDeletesRestoreOrder(t *testing.T) {
	m, fake := newLoadedManager(t,
		rec{"id": "a", "status": "Pending"},
		rec{"id": "b", "status": "Pending"},
		rec{"id": "c", "status": "Pending"},
	)
	delA, delB := mutationKey(source.OpDelete, "a"), mutationKey(source.OpDelete, "b")
	g := newGatedMutations(delA, delB)
	fake.MutateFunc = g.mutate

	ctx := context.Background()
	doneA := make(chan error, 1)
	go func() { doneA <- m.Delete(ctx, "a") }()
	require.Eventually(t, func() bool { return m.Len() == 2 }, time.Second, 5*time.Millisecond)

	doneB := make(chan error, 1)
	go func() { doneB <- m.Delete(ctx, "b") }()
	require.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)

	rejected := sourcetest.Err(source.ServerRejected, "in use")
	g.release(delA, rejected)
	require.ErrorIs(t, <-doneA, reports.ErrRolledBack)
	assert.Equal(t, []string{"a", "c"}, ids(m.All()))

	g.release(delB, rejected)
	require.ErrorIs(t, <-doneB, reports.ErrRolledBack)
	assert.Equal(t, []string{"a", "b", "c"}, ids(m.All()))
}

func TestRejectedUpdateThenRejectedDeleteRestoresServerStatus(t *testing.T) {
	m, fake := newLoadedManager(t,
		rec{"id": "a", "status": "Pending"},
		rec{"id": "b", "status": "Pending"},
	)
	upd, del := mutationKey(source.OpUpdate, "a"), mutationKey(source.OpDelete, "a")
	g := newGatedMutations(upd, del)
	fake.MutateFunc = g.mutate

	ctx := context.Background()
	updated := make(chan error, 1)
	go func() { updated <- m.UpdateStatus(ctx, "a", model.StatusResolved) }()
	require.Eventually(t, func() bool { return len(fake.Mutations()) == 1 }, time.Second, 5*time.Millisecond)

	deleted := make(chan error, 1)
	go func() { deleted <- m.Delete(ctx, "a") }()
	require.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)

	rejected := sourcetest.Err(source.ServerRejected, "locked")
	g.release(upd, rejected)
	require.ErrorIs(t, <-updated, reports.ErrRolledBack)
	g.release(del, rejected)
	require.ErrorIs(t, <-deleted, reports.ErrRolledBack)

	assert.Equal(t, []string{"a", "b"}, ids(m.All()))
	assert.Equal(t, model.StatusPending, statusOf(t, m, "a"))
}

func TestRejectedDeleteThenSettledUpdate(t *testing.T) {
	tests := []struct {
		name      string
		updateErr error
		want      model.Status
	}{
		{"update rejected", sourcetest.Err(source.ServerRejected, "locked"), model.StatusPending},
		{"update confirmed", nil, model.StatusResolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, fake := newLoadedManager(t, rec{"id": "a", "status": "Pending"})
			upd, del := mutationKey(source.OpUpdate, "a"), mutationKey(source.OpDelete, "a")
			g := newGatedMutations(upd, del)
			fake.MutateFunc = g.mutate

			ctx := context.Background()
			updated := make(chan error, 1)
			go func() { updated <- m.UpdateStatus(ctx, "a", model.StatusResolved) }()
			require.Eventually(t, func() bool { return len(fake.Mutations()) == 1 }, time.Second, 5*time.Millisecond)

			deleted := make(chan error, 1)
			go func() { deleted <- m.Delete(ctx, "a") }()
			require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)

			g.release(del, sourcetest.Err(source.ServerRejected, "locked"))
			require.ErrorIs(t, <-deleted, reports.ErrRolledBack)
			// The update is still in flight, so its target stays visible.
			assert.Equal(t, model.StatusResolved, statusOf(t, m, "a"))

			g.release(upd, tt.updateErr)
			<-updated
			assert.Equal(t, tt.want, statusOf(t, m, "a"))
		})
	}
}

type recordingSnapshots struct {
	mu    sync.Mutex
	saved []model.Report
}

func (r *recordingSnapshots) SaveReports(_ context.Context, rs []model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = rs
	return nil
}

func (r *recordingSnapshots) LoadReports(context.Context) ([]model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved, nil
}

func TestSnapshotExcludesPendingEdits(t *testing.T) {
	fake := &sourcetest.Fake{}
	fake.SetCollection(source.ResourceReports,
		rec{"id": "a", "status": "Pending"},
		rec{"id": "b", "status": "Pending"},
	)
	snaps := &recordingSnapshots{}
	m := reports.New(fake, reports.Options{Snapshots: snaps})
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	upd, del := mutationKey(source.OpUpdate, "a"), mutationKey(source.OpDelete, "b")
	g := newGatedMutations(upd, del)
	fake.MutateFunc = g.mutate

	updated := make(chan error, 1)
	go func() { updated <- m.UpdateStatus(ctx, "a", model.StatusResolved) }()
	deleted := make(chan error, 1)
	go func() { deleted <- m.Delete(ctx, "b") }()
	require.Eventually(t, func() bool { return len(m.PendingOperations()) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Load(ctx))
	assert.Equal(t, model.StatusResolved, statusOf(t, m, "a"))
	assert.Equal(t, []string{"a"}, ids(m.All()))

	saved, err := snaps.LoadReports(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids(saved))
	assert.Equal(t, model.StatusPending, saved[0].Status)

	g.release(upd, nil)
	g.release(del, nil)
	require.NoError(t, <-updated)
	require.NoError(t, <-deleted)
}
