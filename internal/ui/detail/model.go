package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/theme"
	"github.com/nhle/ecotrack-console/internal/ui/reportlist"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries the report to show.
type DetailLoadedMsg struct {
	Report model.Report

	// LastOp is the most recent operation on the report, if any.
	LastOp *reports.Operation
}

// Model is the report detail view component.
type Model struct {
	report   *model.Report
	lastOp   *reports.Operation
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		r := msg.Report
		m.report = &r
		m.lastOp = msg.LastOp
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.SetPending):
			return m, m.requestStatus(model.StatusPending)

		case key.Matches(msg, m.keys.SetInProgress):
			return m, m.requestStatus(model.StatusInProgress)

		case key.Matches(msg, m.keys.SetResolved):
			return m, m.requestStatus(model.StatusResolved)

		case key.Matches(msg, m.keys.Delete):
			if m.report != nil {
				id := m.report.ID
				return m, func() tea.Msg {
					return reportlist.DeleteRequestMsg{ReportID: id}
				}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) requestStatus(status model.Status) tea.Cmd {
	if m.report == nil || m.report.Status == status {
		return nil
	}
	id := m.report.ID
	return func() tea.Msg {
		return reportlist.StatusChangeMsg{ReportID: id, Status: status}
	}
}

// ReportID returns the id of the report on screen, or "".
func (m Model) ReportID() string {
	if m.report == nil {
		return ""
	}
	return m.report.ID
}

// View renders the detail view.
func (m Model) View() string {
	if m.report == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No report selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.report == nil {
		return ""
	}

	r := m.report
	var sections []string

	// Title
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(r.IssueType))

	// Badges line: category + status + priority
	catBadge := lipgloss.NewStyle().
		Foreground(theme.ColorMagenta).
		Render(strings.ToUpper(string(r.Category())))

	statusBadge := theme.StatusStyle(string(r.Status)).Render(string(r.Status))
	priBadge := theme.PriorityStyle(r.Priority).Render(r.Priority)

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top, catBadge, "  ", statusBadge, "  ", priBadge,
	)
	sections = append(sections, badgeLine)
	sections = append(sections, "")

	// Metadata table
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf(
		"%s         %s",
		metaStyle.Render("ID:"),
		valStyle.Render(r.ID),
	))
	if r.SubmitterName != "" {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Submitter:"),
			valStyle.Render(r.SubmitterName),
		))
	}
	if r.Location != "" {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Location:"),
			valStyle.Render(r.Location),
		))
	}
	if !r.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s    %s",
			metaStyle.Render("Created:"),
			valStyle.Render(r.CreatedAt.Format("2006-01-02 15:04")),
		))
	}

	if op := m.lastOp; op != nil {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Last sync:"),
			renderOperation(*op),
		))
	}

	// Separator
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections = append(sections, headerStyle.Render("Description"))

	body := r.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	if len(r.Attachments) > 0 {
		sections = append(sections, "")
		sections = append(sections, headerStyle.Render(
			fmt.Sprintf("Attachments (%d)", len(r.Attachments)),
		))
		linkStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Underline(true)
		for _, a := range r.Attachments {
			sections = append(sections, "  "+linkStyle.Render(a))
		}
	}

	sections = append(sections, "")
	sections = append(sections, theme.HelpStyle.Render(
		"1 pending · 2 in progress · 3 resolved · d delete · esc back",
	))

	return strings.Join(sections, "\n")
}

// renderOperation describes the sync state of an operation in one line.
func renderOperation(op reports.Operation) string {
	label := op.Kind.String()
	if op.Kind == reports.OpStatusUpdate {
		label = fmt.Sprintf("%s → %s", op.From, op.To)
	}

	switch op.State {
	case reports.OpPending:
		return lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(label + " (saving…)")
	case reports.OpRolledBack:
		reason := "rejected"
		if op.Err != nil {
			reason = op.Err.Error()
		}
		return lipgloss.NewStyle().Foreground(theme.ColorRed).Render(label + " rolled back: " + reason)
	default:
		return lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(label + " saved")
	}
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.report != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
