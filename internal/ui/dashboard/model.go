package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/sync"
	"github.com/nhle/ecotrack-console/internal/theme"
	"github.com/nhle/ecotrack-console/internal/users"
)

// Snapshot is everything the dashboard shows, captured at one instant.
type Snapshot struct {
	Reports  reports.Stats
	Users    users.Stats
	Unread   int
	Recent   []model.Report
	Statuses []sync.SyncStatus
}

// recentLimit is how many recent reports are listed.
const recentLimit = 5

// SnapshotFunc captures the current dashboard state.
type SnapshotFunc func() Snapshot

type snapshotMsg Snapshot

// Model is the Dashboard page.
type Model struct {
	capture SnapshotFunc
	snap    Snapshot
	width   int
	height  int
}

// New creates the Dashboard page.
func New(capture SnapshotFunc, width, height int) Model {
	return Model{capture: capture, width: width, height: height}
}

// Init captures the first snapshot.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(snapshotMsg); ok {
		m.snap = Snapshot(msg)
	}
	return m, nil
}

// Reload captures a new snapshot.
func (m Model) Reload() tea.Cmd {
	capture := m.capture
	return func() tea.Msg {
		return snapshotMsg(capture())
	}
}

// View renders the Dashboard page.
func (m Model) View() string {
	s := m.snap

	card := func(label string, n int, color lipgloss.TerminalColor) string {
		value := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprintf("%d", n))
		return theme.StatCardStyle.Render(label + "\n" + value)
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Reports", s.Reports.Total, theme.ColorWhite),
		card("Pending Reviews", s.Reports.PendingReviews(), theme.ColorYellow),
		card("In Progress", s.Reports.ByStatus[model.StatusInProgress], theme.ColorBlue),
		card("Resolved", s.Reports.ByStatus[model.StatusResolved], theme.ColorGreen),
	)
	userCards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Users", s.Users.Total, theme.ColorWhite),
		card("Active", s.Users.Active, theme.ColorGreen),
		card("Admins", s.Users.Admins, theme.ColorMagenta),
		card("Unread", s.Unread, theme.ColorRed),
	)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections := []string{cards, userCards, "", headerStyle.Render("Recent Reports")}

	if len(s.Recent) == 0 {
		sections = append(sections, theme.DimmedStyle.Render("  none"))
	}
	for _, r := range s.Recent {
		sections = append(sections, fmt.Sprintf("  #%s  %s  %s  %s",
			r.ShortID(),
			theme.StatusStyle(string(r.Status)).Render(fmt.Sprintf("%-11s", r.Status)),
			r.IssueType,
			theme.DimmedStyle.Render(r.Location),
		))
	}

	if len(s.Statuses) > 0 {
		sections = append(sections, "", headerStyle.Render("Sync"))
		for _, st := range s.Statuses {
			sections = append(sections, "  "+renderSyncStatus(st))
		}
	}

	return lipgloss.NewStyle().
		Padding(0, 1).
		Width(m.width).
		Height(m.height).
		Render(strings.Join(sections, "\n"))
}

func renderSyncStatus(st sync.SyncStatus) string {
	name := fmt.Sprintf("%-14s", st.Job)
	last := "never"
	if !st.LastSync.IsZero() {
		last = st.LastSync.Format(time.Kitchen)
	}

	switch st.State {
	case sync.SyncRunning:
		return name + lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("syncing…")
	case sync.SyncError:
		reason := ""
		if st.Error != nil {
			reason = ": " + st.Error.Error()
		}
		return name + lipgloss.NewStyle().Foreground(theme.ColorRed).Render("error"+reason)
	default:
		return name + theme.DimmedStyle.Render("ok, last "+last)
	}
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// RecentReports returns up to recentLimit reports, newest first.
func RecentReports(all []model.Report) []model.Report {
	out := make([]model.Report, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out
}
