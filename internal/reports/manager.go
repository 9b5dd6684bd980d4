// Package reports keeps the local cache of incident reports in step with
// the admin API. Mutations are applied optimistically and rolled back when
// the server rejects them.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/source"
	"github.com/nhle/ecotrack-console/internal/urlnorm"
)

var (
	// ErrNotFound is returned when a mutation names a report that is not
	// in the cache.
	ErrNotFound = errors.New("report not found")

	// ErrInvalidStatus is returned for a status outside the workflow.
	ErrInvalidStatus = errors.New("invalid report status")

	// ErrRolledBack marks a mutation whose optimistic effect was undone.
	// It is always joined with the underlying fetch error.
	ErrRolledBack = errors.New("change reverted")
)

// SnapshotStore persists the last loaded collection so the console can
// show something before the first fetch completes.
type SnapshotStore interface {
	SaveReports(ctx context.Context, reports []model.Report) error
	LoadReports(ctx context.Context) ([]model.Report, error)
}

// Options configures a Manager.
type Options struct {
	// Origin is the deployment origin used to normalize attachment URLs.
	Origin string

	Logger    *log.Logger
	Snapshots SnapshotStore
}

// Manager owns the cached report collection.
type Manager struct {
	fetcher   source.Fetcher
	origin    string
	logger    *log.Logger
	snapshots SnapshotStore

	mu      sync.RWMutex
	reports []model.Report
	ops     *tracker

	// ordinal is each report's position in the last applied collection.
	// A rolled back delete is re-inserted by ordinal so overlapping
	// rollbacks restore the original order.
	ordinal map[string]int

	// confirmed is the last status the server acknowledged for each id,
	// used as the rollback target. confirmedSeq orders acknowledgements so
	// a late success for an older operation cannot overwrite a newer one.
	confirmed    map[string]model.Status
	confirmedSeq map[string]uint64

	loadSeq    uint64
	appliedSeq uint64
	lastLoad   time.Time

	// changes receives a value after the cache changes. It holds at most
	// one pending signal.
	changes chan struct{}
}

// New creates a Manager with an empty cache.
func New(fetcher source.Fetcher, opts Options) *Manager {
	return &Manager{
		fetcher:      fetcher,
		origin:       opts.Origin,
		logger:       logging.OrDiscard(opts.Logger),
		snapshots:    opts.Snapshots,
		ops:          newTracker(),
		ordinal:      make(map[string]int),
		confirmed:    make(map[string]model.Status),
		confirmedSeq: make(map[string]uint64),
		changes:      make(chan struct{}, 1),
	}
}

// Changes returns a channel that receives a value whenever the cached
// collection changes, optimistic edits and rollbacks included. Signals
// coalesce: a reader that falls behind sees one value for many changes.
func (m *Manager) Changes() <-chan struct{} {
	return m.changes
}

func (m *Manager) changed() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Restore fills an empty cache from the snapshot store. It does nothing
// once a load has been applied.
func (m *Manager) Restore(ctx context.Context) error {
	if m.snapshots == nil {
		return nil
	}

	cached, err := m.snapshots.LoadReports(ctx)
	if err != nil {
		return fmt.Errorf("restoring report snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appliedSeq > 0 || len(m.reports) > 0 {
		return nil
	}
	m.reports = cached
	for i, r := range cached {
		m.confirmed[r.ID] = r.Status
		m.ordinal[r.ID] = i
	}
	m.changed()
	m.logger.Debug("restored report snapshot", "count", len(cached))
	return nil
}

// Load replaces the cache with the server's collection. On failure the
// cache is left as it was. A load that completes after a newer one has
// been applied is discarded.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loadSeq++
	seq := m.loadSeq
	m.mu.Unlock()

	records, err := m.fetcher.FetchCollection(ctx, source.ResourceReports)
	if err != nil {
		m.logger.Warn("report load failed", "kind", kindName(err), "err", err)
		return fmt.Errorf("loading reports: %w", err)
	}

	loaded := m.decode(records)

	m.mu.Lock()
	if applied := m.appliedSeq; seq <= applied {
		m.mu.Unlock()
		m.logger.Debug("discarding superseded report load", "seq", seq, "applied", applied)
		return nil
	}

	m.appliedSeq = seq
	m.lastLoad = time.Now()
	m.confirmed = make(map[string]model.Status, len(loaded))
	m.confirmedSeq = make(map[string]uint64, len(loaded))
	m.ordinal = make(map[string]int, len(loaded))
	for i, r := range loaded {
		m.confirmed[r.ID] = r.Status
		m.ordinal[r.ID] = i
	}
	// The snapshot holds server state only, never unconfirmed edits.
	snapshot := cloneAll(loaded)
	m.reports = m.reapplyPending(loaded)
	m.mu.Unlock()
	m.changed()

	m.logger.Info("reports loaded", "count", len(loaded))
	m.saveSnapshot(ctx, snapshot)
	return nil
}

// decode converts raw records into reports. Records without an id or that
// fail to decode are skipped, as are repeated ids.
func (m *Manager) decode(records []source.RawRecord) []model.Report {
	out := make([]model.Report, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, raw := range records {
		r, err := model.DecodeReport(raw)
		if err != nil {
			m.logger.Warn("skipping report record", "index", i, "err", err)
			continue
		}
		if seen[r.ID] {
			m.logger.Warn("skipping duplicate report", "id", r.ID)
			continue
		}
		seen[r.ID] = true
		r.Attachments = urlnorm.NormalizeAll(r.Attachments, m.origin)
		out = append(out, r)
	}
	return out
}

// reapplyPending lays in-flight optimistic operations over freshly loaded
// data so a reload does not briefly undo them. Must hold m.mu.
func (m *Manager) reapplyPending(loaded []model.Report) []model.Report {
	pending := m.ops.pendingOps()
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

	for _, op := range pending {
		if !m.ops.isCurrent(m.ops.pending[op.ID]) {
			continue
		}
		i := indexOf(loaded, op.ReportID)
		if i < 0 {
			continue
		}
		switch op.Kind {
		case OpStatusUpdate:
			loaded[i].Status = op.To
		case OpDelete:
			live := m.ops.pending[op.ID]
			live.Index = i
			live.Snapshot = loaded[i].Clone()
			loaded = append(loaded[:i], loaded[i+1:]...)
		}
	}
	return loaded
}

// UpdateStatus sets a report's status locally, then asks the server to
// do the same. If the server rejects the change the local status reverts
// to the last confirmed one and the returned error wraps both
// ErrRolledBack and the fetch error.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	m.mu.Lock()
	i := indexOf(m.reports, id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("updating report %s: %w", id, ErrNotFound)
	}
	from := m.reports[i].Status
	if _, inFlight := m.ops.latestFor(id); from == status && !inFlight {
		m.mu.Unlock()
		return nil
	}
	op := m.ops.begin(Operation{
		ReportID: id,
		Kind:     OpStatusUpdate,
		From:     from,
		To:       status,
		Index:    i,
	})
	m.reports[i].Status = status
	m.mu.Unlock()
	m.changed()

	m.logger.Debug("updating report status", "id", id, "from", from, "to", status, "op", op.ID)

	resp, err := m.fetcher.MutateResource(ctx, source.ResourceReports, id, source.OpUpdate,
		map[string]string{"status": string(status)})

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.changed()

	if err != nil {
		m.ops.finish(op, OpRolledBack, err)
		m.settle(id, from)
		m.logger.Warn("report status update rejected",
			"id", id, "kind", kindName(err), "reason", source.Reason(err))
		return fmt.Errorf("updating report %s: %w: %w", id, ErrRolledBack, err)
	}

	final := status
	if s, ok := model.DecodeStatus(resp); ok {
		final = s
	}
	if op.seq > m.confirmedSeq[id] {
		m.confirmed[id] = final
		m.confirmedSeq[id] = op.seq
	}
	m.ops.finish(op, OpConfirmed, nil)
	m.settle(id, final)
	m.logger.Info("report status updated", "id", id, "status", final)
	return nil
}

// Delete removes a report locally, then asks the server to delete it. If
// the server rejects the delete the report is put back at the index it
// was removed from.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	i := indexOf(m.reports, id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("deleting report %s: %w", id, ErrNotFound)
	}
	removed := m.reports[i]
	op := m.ops.begin(Operation{
		ReportID: id,
		Kind:     OpDelete,
		From:     removed.Status,
		Index:    i,
		Snapshot: removed.Clone(),
	})
	m.reports = append(m.reports[:i:i], m.reports[i+1:]...)
	m.mu.Unlock()
	m.changed()

	m.logger.Debug("deleting report", "id", id, "index", i, "op", op.ID)

	_, err := m.fetcher.MutateResource(ctx, source.ResourceReports, id, source.OpDelete, nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.changed()

	if err != nil {
		if indexOf(m.reports, id) < 0 {
			r := op.Snapshot.Clone()
			r.Status = m.settledStatus(id, r.Status)
			m.reports = m.insertByOrdinal(r, op.Index)
		}
		m.ops.finish(op, OpRolledBack, err)
		m.logger.Warn("report delete rejected",
			"id", id, "kind", kindName(err), "reason", source.Reason(err))
		return fmt.Errorf("deleting report %s: %w: %w", id, ErrRolledBack, err)
	}

	delete(m.confirmed, id)
	delete(m.confirmedSeq, id)
	delete(m.ordinal, id)
	m.ops.finish(op, OpConfirmed, nil)
	m.ops.forget(id)
	m.logger.Info("report deleted", "id", id)
	return nil
}

// GetFiltered returns the cached reports matching c, in cache order.
func (m *Manager) GetFiltered(c Criteria) []model.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Filter(m.reports, c)
}

// All returns every cached report in cache order.
func (m *Manager) All() []model.Report {
	return m.GetFiltered(AllReports)
}

// Get returns the cached report with the given id.
func (m *Manager) Get(id string) (model.Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := indexOf(m.reports, id)
	if i < 0 {
		return model.Report{}, false
	}
	return m.reports[i].Clone(), true
}

// Len returns the number of cached reports.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}

// Stats counts the cached reports by status.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return computeStats(m.reports)
}

// LastLoaded returns when a load was last applied, or the zero time.
func (m *Manager) LastLoaded() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoad
}

// Operation returns a pending or recently finished operation by id.
func (m *Manager) Operation(id string) (Operation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ops.get(id)
}

// PendingOperations returns the operations still awaiting the server,
// oldest first.
func (m *Manager) PendingOperations() []Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ops := m.ops.pendingOps()
	sort.Slice(ops, func(i, j int) bool { return ops[i].seq < ops[j].seq })
	return ops
}

// LastOperation returns the most recent operation recorded for a report.
func (m *Manager) LastOperation(reportID string) (Operation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if op, ok := m.ops.latestFor(reportID); ok {
		return *op, true
	}

	var (
		best  Operation
		found bool
	)
	for _, key := range m.ops.history.Keys() {
		op, ok := m.ops.history.Peek(key)
		if !ok || op.ReportID != reportID {
			continue
		}
		if !found || op.seq > best.seq {
			best, found = op, true
		}
	}
	return best, found
}

func (m *Manager) saveSnapshot(ctx context.Context, reports []model.Report) {
	if m.snapshots == nil {
		return
	}
	if err := m.snapshots.SaveReports(ctx, reports); err != nil {
		m.logger.Warn("saving report snapshot", "err", err)
	}
}

func indexOf(reports []model.Report, id string) int {
	for i := range reports {
		if reports[i].ID == id {
			return i
		}
	}
	return -1
}

// settledStatus is the status the cache should show for id once an
// operation on it finishes: the target of a pending update begun after
// the last acknowledgement, else the last confirmed status. Must hold m.mu.
func (m *Manager) settledStatus(id string, fallback model.Status) model.Status {
	if op, ok := m.ops.newestPendingUpdate(id); ok && op.seq > m.confirmedSeq[id] {
		return op.To
	}
	if s, ok := m.confirmed[id]; ok {
		return s
	}
	return fallback
}

// settle applies settledStatus to the cached record, if it is cached.
// Must hold m.mu.
func (m *Manager) settle(id string, fallback model.Status) {
	if j := indexOf(m.reports, id); j >= 0 {
		m.reports[j].Status = m.settledStatus(id, fallback)
	}
}

// insertByOrdinal puts r back before the first cached report that came
// after it in the last applied collection. Without an ordinal for r it
// falls back to index i. Must hold m.mu.
func (m *Manager) insertByOrdinal(r model.Report, i int) []model.Report {
	want, ok := m.ordinal[r.ID]
	if !ok {
		return insertAt(m.reports, i, r)
	}
	at := len(m.reports)
	for j, other := range m.reports {
		if o, ok := m.ordinal[other.ID]; ok && o > want {
			at = j
			break
		}
	}
	return insertAt(m.reports, at, r)
}

// insertAt inserts r at index i, clamped to the slice bounds.
func insertAt(reports []model.Report, i int, r model.Report) []model.Report {
	if i < 0 {
		i = 0
	}
	if i > len(reports) {
		i = len(reports)
	}
	reports = append(reports, model.Report{})
	copy(reports[i+1:], reports[i:])
	reports[i] = r
	return reports
}

func cloneAll(reports []model.Report) []model.Report {
	out := make([]model.Report, len(reports))
	for i, r := range reports {
		out[i] = r.Clone()
	}
	return out
}

func kindName(err error) string {
	if kind, ok := source.KindOf(err); ok {
		return kind.String()
	}
	return "unknown"
}
