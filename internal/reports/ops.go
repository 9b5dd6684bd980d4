package reports

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nhle/ecotrack-console/internal/model"
)

// OpKind is the kind of optimistic mutation.
type OpKind int

const (
	OpStatusUpdate OpKind = iota
	OpDelete
)

func (k OpKind) String() string {
	if k == OpDelete {
		return "delete"
	}
	return "status-update"
}

// OpState is the lifecycle state of an optimistic mutation.
type OpState int

const (
	OpPending OpState = iota
	OpConfirmed
	OpRolledBack
)

func (s OpState) String() string {
	switch s {
	case OpConfirmed:
		return "confirmed"
	case OpRolledBack:
		return "rolled-back"
	default:
		return "pending"
	}
}

// Operation is one optimistic mutation of a report.
type Operation struct {
	ID       string
	ReportID string
	Kind     OpKind
	State    OpState

	// From and To are the statuses before and after a status update.
	From model.Status
	To   model.Status

	// Index is where a deleted record sat when the delete began, and
	// Snapshot is the record itself, for rollback.
	Index    int
	Snapshot model.Report

	StartedAt  time.Time
	FinishedAt time.Time
	Err        error

	seq uint64
}

// historySize bounds how many finished operations stay inspectable.
const historySize = 256

// tracker keeps pending operations and a bounded history of finished ones.
// It is not safe for concurrent use; the Manager guards it.
type tracker struct {
	seq     uint64
	pending map[string]*Operation
	// latest maps a report id to its most recent pending operation id.
	latest map[string]string
	// newest is the sequence number of the last operation begun per report.
	newest  map[string]uint64
	history *lru.Cache[string, Operation]
}

func newTracker() *tracker {
	history, err := lru.New[string, Operation](historySize)
	if err != nil {
		// Only possible with a non-positive size.
		panic(err)
	}
	return &tracker{
		pending: make(map[string]*Operation),
		latest:  make(map[string]string),
		newest:  make(map[string]uint64),
		history: history,
	}
}

// begin registers a new pending operation and makes it the latest one for
// its report, superseding any earlier pending operation.
func (t *tracker) begin(op Operation) *Operation {
	t.seq++
	op.ID = uuid.NewString()
	op.State = OpPending
	op.StartedAt = time.Now()
	op.seq = t.seq

	p := &op
	t.pending[op.ID] = p
	t.latest[op.ReportID] = op.ID
	t.newest[op.ReportID] = op.seq
	return p
}

// isCurrent reports whether no operation on the same report was begun
// after op. Completions of operations that are no longer current are
// stale and must not touch the cached record.
func (t *tracker) isCurrent(op *Operation) bool {
	return t.newest[op.ReportID] == op.seq
}

// forget drops the bookkeeping for a report that no longer exists.
func (t *tracker) forget(reportID string) {
	if _, ok := t.latest[reportID]; ok {
		return
	}
	delete(t.newest, reportID)
}

// finish moves op into the history with the given final state.
func (t *tracker) finish(op *Operation, state OpState, err error) {
	op.State = state
	op.Err = err
	op.FinishedAt = time.Now()

	delete(t.pending, op.ID)
	if t.latest[op.ReportID] == op.ID {
		delete(t.latest, op.ReportID)
		// An older operation on the same report may still be in flight.
		var newest *Operation
		for _, p := range t.pending {
			if p.ReportID == op.ReportID && (newest == nil || p.seq > newest.seq) {
				newest = p
			}
		}
		if newest != nil {
			t.latest[op.ReportID] = newest.ID
		}
	}
	t.history.Add(op.ID, *op)
}

// latestFor returns the newest pending operation for reportID.
func (t *tracker) latestFor(reportID string) (*Operation, bool) {
	id, ok := t.latest[reportID]
	if !ok {
		return nil, false
	}
	op, ok := t.pending[id]
	return op, ok
}

// newestPendingUpdate returns the most recent pending status update for
// reportID.
func (t *tracker) newestPendingUpdate(reportID string) (*Operation, bool) {
	var newest *Operation
	for _, p := range t.pending {
		if p.ReportID == reportID && p.Kind == OpStatusUpdate && (newest == nil || p.seq > newest.seq) {
			newest = p
		}
	}
	return newest, newest != nil
}

func (t *tracker) get(id string) (Operation, bool) {
	if op, ok := t.pending[id]; ok {
		return *op, true
	}
	return t.history.Get(id)
}

func (t *tracker) pendingOps() []Operation {
	out := make([]Operation, 0, len(t.pending))
	for _, op := range t.pending {
		out = append(out, *op)
	}
	return out
}
