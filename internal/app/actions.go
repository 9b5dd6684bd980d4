package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/ecotrack-console/internal/credential"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/source"
	"github.com/nhle/ecotrack-console/internal/store"
	"github.com/nhle/ecotrack-console/internal/ui/detail"
)

// mutationTimeout bounds a single status change, delete or acknowledgement.
const mutationTimeout = 30 * time.Second

// authPrompt replaces the status bar hints after an Unauthorized failure.
const authPrompt = "API token missing or expired. Press 'L' to sign in."

type pageLoadedMsg struct {
	page model.Page
}

// reportsChangedMsg is sent whenever the report cache changes.
type reportsChangedMsg struct{}

// reportGoneMsg is sent when the report on the detail screen left the cache.
type reportGoneMsg struct {
	id string
}

type unreadCountMsg struct {
	count int
}

type statusUpdatedMsg struct {
	id     string
	status model.Status
	err    error
}

type reportDeletedMsg struct {
	id  string
	err error
}

type userDeletedMsg struct {
	id   string
	name string
	err  error
}

type scheduleDeletedMsg struct {
	id    string
	label string
	err   error
}

type acknowledgedMsg struct {
	id  string
	err error
}

type readAllDoneMsg struct {
	count int
	err   error
}

type loggedOutMsg struct {
	err error
}

// loadLastPage restores the page the operator had open last time.
func (m Model) loadLastPage() tea.Cmd {
	s := m.deps.Store
	logger := m.logger
	return func() tea.Msg {
		v, ok, err := s.GetPreference(context.Background(), store.KeyLastPage)
		if err != nil {
			logger.Warn("reading last page", "err", err)
			return nil
		}
		if !ok {
			return nil
		}
		return pageLoadedMsg{page: model.ParsePage(v)}
	}
}

// savePage remembers the current page.
func (m Model) savePage(p model.Page) tea.Cmd {
	s := m.deps.Store
	logger := m.logger
	return func() tea.Msg {
		if err := s.SetPreference(context.Background(), store.KeyLastPage, string(p)); err != nil {
			logger.Warn("saving last page", "err", err)
		}
		return nil
	}
}

// restoreSnapshot shows the last saved report collection until the first
// load completes.
func (m Model) restoreSnapshot() tea.Cmd {
	mgr := m.deps.Reports
	logger := m.logger
	return func() tea.Msg {
		if err := mgr.Restore(context.Background()); err != nil {
			logger.Warn("restoring reports", "err", err)
		}
		return nil
	}
}

// waitForReportChange returns a tea.Cmd that blocks until the report cache
// changes. It must be re-issued after each reportsChangedMsg.
func (m Model) waitForReportChange() tea.Cmd {
	changes := m.deps.Reports.Changes()
	return func() tea.Msg {
		<-changes
		return reportsChangedMsg{}
	}
}

// loadReportDetail returns a command that reads a report from the cache.
func (m Model) loadReportDetail(id string) tea.Cmd {
	mgr := m.deps.Reports
	return func() tea.Msg {
		r, ok := mgr.Get(id)
		if !ok {
			return reportGoneMsg{id: id}
		}
		msg := detail.DetailLoadedMsg{Report: r}
		if op, ok := mgr.LastOperation(id); ok {
			msg.LastOp = &op
		}
		return msg
	}
}

// updateStatus changes a report's status. The cache changes at once; the
// result message arrives when the server answers.
func (m Model) updateStatus(id string, status model.Status) tea.Cmd {
	mgr := m.deps.Reports
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		err := mgr.UpdateStatus(ctx, id, status)
		return statusUpdatedMsg{id: id, status: status, err: err}
	}
}

// deleteReport deletes a report optimistically.
func (m Model) deleteReport(id string) tea.Cmd {
	mgr := m.deps.Reports
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return reportDeletedMsg{id: id, err: mgr.Delete(ctx, id)}
	}
}

// deleteUser deletes a user once the server confirms.
func (m Model) deleteUser(id, name string) tea.Cmd {
	dir := m.deps.Users
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return userDeletedMsg{id: id, name: name, err: dir.Delete(ctx, id)}
	}
}

// deleteSchedule deletes a collection slot once the server confirms.
func (m Model) deleteSchedule(id, label string) tea.Cmd {
	board := m.deps.Schedules
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return scheduleDeletedMsg{id: id, label: label, err: board.Delete(ctx, id)}
	}
}

// acknowledge marks one notification read.
func (m Model) acknowledge(uniqueID string) tea.Cmd {
	agg := m.deps.Notify
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return acknowledgedMsg{id: uniqueID, err: agg.Acknowledge(ctx, uniqueID)}
	}
}

// readAll marks every current notification read.
func (m Model) readAll() tea.Cmd {
	agg := m.deps.Notify
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		n, err := agg.AcknowledgeAll(ctx)
		return readAllDoneMsg{count: n, err: err}
	}
}

// fetchUnreadCount returns a tea.Cmd that reads the unread notification
// count.
func (m Model) fetchUnreadCount() tea.Cmd {
	agg := m.deps.Notify
	return func() tea.Msg {
		return unreadCountMsg{count: agg.UnreadCount()}
	}
}

// logout removes the stored API token.
func (m Model) logout() tea.Cmd {
	creds := m.deps.Credentials
	return func() tea.Msg {
		return loggedOutMsg{err: creds.Delete(credential.TokenKey)}
	}
}

// describeError renders an error for the status bar, preferring the
// server's reason over the full wrapped chain.
func describeError(err error) string {
	var fe *source.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case source.Unauthorized:
			return "not signed in"
		case source.Unreachable:
			return "server unreachable"
		}
		if fe.Reason != "" {
			return fe.Reason
		}
		return fe.Kind.String()
	}
	if errors.Is(err, reports.ErrNotFound) {
		return "report no longer exists"
	}
	return err.Error()
}

func isAuthError(err error) bool {
	return source.IsUnauthorized(err)
}

func shortID(id string) string {
	return model.Report{ID: id}.ShortID()
}
