// Package notify merges the "new users" and "new reports" streams into a
// single notification list with an unread count.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/readstate"
	"github.com/nhle/ecotrack-console/internal/source"
)

// ReportSummary is the title shown for every report notification.
const ReportSummary = "New report submitted"

// StreamSpec names a resource that produces notifications of one kind.
type StreamSpec struct {
	Resource source.Resource
	Kind     model.SourceKind
}

// DefaultStreams are the streams polled by the console.
var DefaultStreams = []StreamSpec{
	{Resource: source.ResourceNewUsers, Kind: model.SourceKindUser},
	{Resource: source.ResourceNewReports, Kind: model.SourceKindReport},
}

// StreamsFromConfig converts configured streams, falling back to
// DefaultStreams when none are usable.
func StreamsFromConfig(cfgs []model.StreamConfig) []StreamSpec {
	out := make([]StreamSpec, 0, len(cfgs))
	for _, c := range cfgs {
		kind := model.SourceKind(c.Kind)
		if c.Resource == "" || (kind != model.SourceKindUser && kind != model.SourceKindReport) {
			continue
		}
		out = append(out, StreamSpec{Resource: source.Resource(c.Resource), Kind: kind})
	}
	if len(out) == 0 {
		return append([]StreamSpec(nil), DefaultStreams...)
	}
	return out
}

// StreamFailure records a stream that was degraded to empty.
type StreamFailure struct {
	Stream StreamSpec
	Err    error
}

// Result is the outcome of one refresh.
type Result struct {
	Items    []model.NotificationItem
	Unread   int
	Failures []StreamFailure
}

// Aggregator owns the current notification list.
type Aggregator struct {
	fetcher source.Fetcher
	reads   *readstate.Store
	logger  *log.Logger

	mu          sync.RWMutex
	items       []model.NotificationItem
	gen         uint64
	applied     uint64
	lastRefresh time.Time
}

// New creates an Aggregator that checks read markers in reads.
func New(fetcher source.Fetcher, reads *readstate.Store, logger *log.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		reads:   reads,
		logger:  logging.OrDiscard(logger),
	}
}

// Refresh fetches every stream concurrently. A stream that fails is
// treated as empty and listed in Result.Failures. When every stream fails
// the current list is kept and the joined errors are returned. If any
// stream failed as Unauthorized, that error is returned alongside the
// degraded result so the caller can ask for a new credential.
//
// A refresh that finishes after a newer one has been applied does not
// replace the current list.
func (a *Aggregator) Refresh(ctx context.Context, streams []StreamSpec) (Result, error) {
	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	perStream := make([][]model.NotificationItem, len(streams))
	errs := make([]error, len(streams))

	var g errgroup.Group
	for i, spec := range streams {
		g.Go(func() error {
			records, err := a.fetcher.FetchCollection(ctx, spec.Resource)
			if err != nil {
				errs[i] = err
				return nil
			}
			perStream[i] = a.itemsFrom(spec, records)
			return nil
		})
	}
	_ = g.Wait()

	var (
		res       Result
		authErr   error
		seen      = make(map[string]bool)
		allFailed = len(streams) > 0
	)
	for i, spec := range streams {
		if err := errs[i]; err != nil {
			res.Failures = append(res.Failures, StreamFailure{Stream: spec, Err: err})
			a.logger.Warn("notification stream failed",
				"resource", spec.Resource, "kind", spec.Kind, "err", err)
			if authErr == nil && source.IsUnauthorized(err) {
				authErr = err
			}
			continue
		}
		allFailed = false
		for _, item := range perStream[i] {
			if seen[item.UniqueID] {
				continue
			}
			seen[item.UniqueID] = true
			res.Items = append(res.Items, item)
		}
	}

	if allFailed {
		return a.currentResult(res.Failures), fmt.Errorf("refreshing notifications: %w", errors.Join(errs...))
	}

	res.Unread = a.markRead(res.Items)

	a.mu.Lock()
	if gen > a.applied {
		a.applied = gen
		a.items = append([]model.NotificationItem(nil), res.Items...)
		a.lastRefresh = time.Now()
	} else {
		a.logger.Debug("discarding superseded notification refresh", "gen", gen)
	}
	a.mu.Unlock()

	a.logger.Debug("notifications refreshed",
		"items", len(res.Items), "unread", res.Unread, "failed_streams", len(res.Failures))

	if authErr != nil {
		return res, fmt.Errorf("refreshing notifications: %w", authErr)
	}
	return res, nil
}

// itemsFrom decodes the records of one stream. Records without an id are
// skipped.
func (a *Aggregator) itemsFrom(spec StreamSpec, records []source.RawRecord) []model.NotificationItem {
	items := make([]model.NotificationItem, 0, len(records))
	for i, raw := range records {
		item, err := newItem(spec.Kind, raw)
		if err != nil {
			a.logger.Warn("skipping notification record",
				"resource", spec.Resource, "index", i, "err", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

func newItem(kind model.SourceKind, raw []byte) (model.NotificationItem, error) {
	item := model.NotificationItem{SourceKind: kind}

	switch kind {
	case model.SourceKindUser:
		u, err := model.DecodeUser(raw)
		if err != nil {
			return item, err
		}
		item.SourceID = u.ID
		item.Summary = u.FullName
		item.Detail = u.Email
	case model.SourceKindReport:
		r, err := model.DecodeReport(raw)
		if err != nil {
			return item, err
		}
		item.SourceID = r.ID
		item.Summary = ReportSummary
		item.Detail = r.Description
	default:
		return item, fmt.Errorf("unknown source kind %q", kind)
	}

	item.UniqueID = model.UniqueID(kind, item.SourceID)
	return item, nil
}

// markRead sets IsRead on every item and returns the unread count.
func (a *Aggregator) markRead(items []model.NotificationItem) int {
	unread := 0
	for i := range items {
		items[i].IsRead = a.reads.IsRead(items[i].UniqueID)
		if !items[i].IsRead {
			unread++
		}
	}
	return unread
}

func (a *Aggregator) currentResult(failures []StreamFailure) Result {
	items := a.Items()
	unread := 0
	for _, it := range items {
		if !it.IsRead {
			unread++
		}
	}
	return Result{Items: items, Unread: unread, Failures: failures}
}

// Items returns the current notifications with read flags recomputed.
func (a *Aggregator) Items() []model.NotificationItem {
	a.mu.RLock()
	items := make([]model.NotificationItem, len(a.items))
	copy(items, a.items)
	a.mu.RUnlock()

	a.markRead(items)
	return items
}

// UnreadCount returns the exact number of unread notifications.
func (a *Aggregator) UnreadCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	unread := 0
	for _, it := range a.items {
		if !a.reads.IsRead(it.UniqueID) {
			unread++
		}
	}
	return unread
}

// LastRefreshed returns when a refresh was last applied.
func (a *Aggregator) LastRefreshed() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRefresh
}

// Find returns the current notification with the given unique id.
func (a *Aggregator) Find(uniqueID string) (model.NotificationItem, bool) {
	for _, it := range a.Items() {
		if it.UniqueID == uniqueID {
			return it, true
		}
	}
	return model.NotificationItem{}, false
}

// Acknowledge marks one notification as read. It is meant to be called
// once for each notification the operator opens.
func (a *Aggregator) Acknowledge(ctx context.Context, uniqueID string) error {
	if err := a.reads.MarkRead(ctx, uniqueID); err != nil {
		return fmt.Errorf("acknowledging %s: %w", uniqueID, err)
	}
	a.logger.Debug("notification acknowledged", "id", uniqueID)
	return nil
}

// AcknowledgeAll marks every current unread notification as read and
// returns how many were marked. It stops at the first persistence failure.
func (a *Aggregator) AcknowledgeAll(ctx context.Context) (int, error) {
	marked := 0
	for _, it := range a.Items() {
		if it.IsRead {
			continue
		}
		if err := a.Acknowledge(ctx, it.UniqueID); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// BadgeText renders an unread count for the notification badge: empty
// for zero and "9+" above nine.
func BadgeText(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 9:
		return "9+"
	default:
		return strconv.Itoa(unread)
	}
}
