package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/theme"
)

var headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var bodyCell = lipgloss.NewStyle().Padding(0, 1)

// newTable returns a table with the console's border and cell styles.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		}).
		Headers(headers...)
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderReports(rs []model.Report) string {
	t := newTable("ID", "STATUS", "PRIORITY", "TYPE", "LOCATION", "SUBMITTER", "CREATED")
	for _, r := range rs {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("2006-01-02")
		}
		t.Row(r.ID, string(r.Status), r.Priority, r.IssueType, r.Location, r.SubmitterName, created)
	}
	return t.Render()
}

func renderUsers(us []model.User) string {
	t := newTable("ID", "NAME", "EMAIL", "ROLE", "STATUS")
	for _, u := range us {
		t.Row(u.ID, u.FullName, u.Email, u.Role, u.Status)
	}
	return t.Render()
}

func renderNotifications(items []model.NotificationItem) string {
	t := newTable("", "ID", "SUMMARY", "DETAIL")
	for _, it := range items {
		dot := " "
		if !it.IsRead {
			dot = "●"
		}
		t.Row(dot, it.UniqueID, it.Summary, truncate(it.Detail, 60))
	}
	return t.Render()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
