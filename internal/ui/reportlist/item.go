package reportlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/theme"
)

// ReportItem wraps a model.Report so it can be used in a bubbles/list.
type ReportItem struct {
	Report model.Report
}

// FilterValue returns the string used for fuzzy filtering.
func (i ReportItem) FilterValue() string { return i.Report.IssueType }

// Title returns the issue type for the list.
func (i ReportItem) Title() string { return i.Report.IssueType }

// Description returns a short summary line for the list.
func (i ReportItem) Description() string {
	parts := []string{
		string(i.Report.Status),
		i.Report.Location,
		relativeTime(i.Report.CreatedAt),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering report rows.
type ItemDelegate struct {
	// inFlight marks report ids with an unconfirmed change. Shared by
	// reference with the list Model so updates are visible.
	inFlight map[string]bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single report row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(ReportItem)
	if !ok {
		return
	}
	r := ri.Report
	isSelected := index == m.Index()

	id := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render("#" + r.ShortID())

	statusBadge := theme.StatusStyle(string(r.Status)).Render(string(r.Status))
	priBadge := theme.PriorityStyle(r.Priority).Render(priorityLabel(r.Priority))

	title := r.IssueType
	if r.Location != "" {
		title += " · " + r.Location
	}

	submitter := ""
	if r.SubmitterName != "" {
		submitter = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render("  " + r.SubmitterName)
	}

	// Unconfirmed change indicator
	pending := ""
	if d.inFlight[r.ID] {
		pending = lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render(" ⟳")
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(r.CreatedAt))

	line := fmt.Sprintf(
		"● %s %s %s %s%s%s  %s",
		id, statusBadge, priBadge, title, submitter, pending, timeStr,
	)

	if r.Status == model.StatusResolved {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}

// priorityLabel returns a short label for the given priority level.
func priorityLabel(p string) string {
	switch p {
	case model.PriorityHigh:
		return "HI"
	case model.PriorityMedium:
		return "MED"
	case model.PriorityLow:
		return "LOW"
	default:
		return "?"
	}
}
