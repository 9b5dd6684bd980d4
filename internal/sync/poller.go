package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/avast/retry-go"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/source"
)

// SyncState represents the current state of a refresh job.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// JobName identifies a registered refresh job.
type JobName string

const (
	JobReports       JobName = "reports"
	JobNotifications JobName = "notifications"
	JobUsers         JobName = "users"
	JobSchedules     JobName = "schedules"
)

// Job is a periodic refresh of one cache.
type Job struct {
	Name     JobName
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// SyncStatus holds the sync state for a single job.
type SyncStatus struct {
	Job      JobName
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a job run completes.
type SyncResultMsg struct {
	Job       JobName
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when a job fails because the API
// credential is missing or rejected.
type AuthErrorMsg struct {
	Job     JobName
	Message string
}

const (
	// fetchTimeout is the maximum time allowed for a single run, retries
	// included.
	fetchTimeout = 30 * time.Second

	defaultInterval   = 60 * time.Second
	defaultRetryDelay = time.Second
	maxRetryDelay     = 10 * time.Second
)

// Options configures a Poller.
type Options struct {
	// RetryAttempts is the number of tries for a run that fails as
	// Unreachable. Values below 1 mean a single try.
	RetryAttempts int
	RetryDelay    time.Duration
	Logger        *log.Logger
}

type jobEntry struct {
	job     Job
	trigger chan struct{}
}

// Poller runs every registered job on its own ticker until stopped.
type Poller struct {
	jobs     []*jobEntry
	statuses map[JobName]*SyncStatus
	resultCh chan SyncResultMsg

	attempts   uint
	retryDelay time.Duration
	logger     *log.Logger

	mu      gosync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      gosync.WaitGroup
}

// New creates a Poller with no jobs.
func New(opts Options) *Poller {
	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &Poller{
		statuses:   make(map[JobName]*SyncStatus),
		resultCh:   make(chan SyncResultMsg, 16),
		attempts:   uint(attempts),
		retryDelay: delay,
		logger:     logging.OrDiscard(opts.Logger),
	}
}

// Register adds a job. Jobs registered after Start are not polled.
func (p *Poller) Register(job Job) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jobs = append(p.jobs, &jobEntry{job: job, trigger: make(chan struct{}, 1)})
	p.statuses[job.Name] = &SyncStatus{Job: job.Name, State: SyncIdle}
}

// Start returns a tea.Cmd that starts all polling goroutines and
// subscribes to results. The returned command waits on the result
// channel and returns SyncResultMsg messages to the Bubble Tea runtime.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	jobs := append([]*jobEntry(nil), p.jobs...)
	p.mu.Unlock()

	for _, entry := range jobs {
		p.wg.Add(1)
		go p.pollJob(ctx, entry)
	}

	return p.waitForResult()
}

// Stop halts all polling goroutines and waits for in-flight runs to end.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// RefreshAll triggers an immediate run of every job.
func (p *Poller) RefreshAll() tea.Cmd {
	p.mu.Lock()
	jobs := append([]*jobEntry(nil), p.jobs...)
	p.mu.Unlock()

	for _, entry := range jobs {
		trigger(entry)
	}
	return nil
}

// RefreshJob triggers an immediate run of a single job.
func (p *Poller) RefreshJob(name JobName) tea.Cmd {
	if entry := p.find(name); entry != nil {
		trigger(entry)
	}
	return nil
}

// RunOnce runs a job synchronously with the poller's retry policy. It is
// used outside the TUI where no polling loop is running.
func (p *Poller) RunOnce(ctx context.Context, name JobName) error {
	entry := p.find(name)
	if entry == nil {
		return fmt.Errorf("unknown sync job %q", name)
	}
	return p.run(ctx, entry.job)
}

// GetStatuses returns the current status of every job in registration
// order.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.jobs))
	for _, entry := range p.jobs {
		statuses = append(statuses, *p.statuses[entry.job.Name])
	}
	return statuses
}

func (p *Poller) find(name JobName) *jobEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, entry := range p.jobs {
		if entry.job.Name == name {
			return entry
		}
	}
	return nil
}

func trigger(entry *jobEntry) {
	select {
	case entry.trigger <- struct{}{}:
	default:
		// A run is already queued.
	}
}

// pollJob runs the polling loop for a single job.
func (p *Poller) pollJob(ctx context.Context, entry *jobEntry) {
	defer p.wg.Done()

	interval := entry.job.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do an initial run immediately
	p.runAndReport(ctx, entry.job)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runAndReport(ctx, entry.job)
		case <-entry.trigger:
			p.runAndReport(ctx, entry.job)
		}
	}
}

// runAndReport performs one run and sends a SyncResultMsg on the result
// channel.
func (p *Poller) runAndReport(ctx context.Context, job Job) {
	err := p.run(ctx, job)
	if ctx.Err() != nil {
		return
	}

	if err != nil && source.IsUnauthorized(err) {
		p.sendResult(SyncResultMsg{
			Job:   job.Name,
			Error: err,
			AuthError: &AuthErrorMsg{
				Job:     job.Name,
				Message: fmt.Sprintf("%s: API token missing or expired. Press 'L' to sign in.", job.Name),
			},
		})
		return
	}

	p.sendResult(SyncResultMsg{Job: job.Name, Error: err})
}

// run executes job with retries on Unreachable failures and records its
// status.
func (p *Poller) run(ctx context.Context, job Job) error {
	p.setStatus(job.Name, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	err := retry.Do(
		func() error {
			return job.Run(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(p.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(source.IsUnreachable),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("sync retry", "job", job.Name, "attempt", n+1, "err", err)
		}),
	)

	if err != nil {
		p.setStatus(job.Name, SyncError, err)
		p.logger.Warn("sync failed", "job", job.Name, "err", err)
		return err
	}

	p.setStatus(job.Name, SyncIdle, nil)
	return nil
}

// setStatus updates the sync status for a job.
func (p *Poller) setStatus(name JobName, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[name]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// This should be called after processing a SyncResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
