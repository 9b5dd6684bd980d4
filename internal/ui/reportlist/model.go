package reportlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/theme"
)

// Source answers filter queries against the cached reports.
type Source interface {
	GetFiltered(c reports.Criteria) []model.Report
	PendingOperations() []reports.Operation
}

// ReportsLoadedMsg is sent when the filtered view has been recomputed.
type ReportsLoadedMsg struct {
	Reports  []model.Report
	InFlight []string
}

// SelectedReportMsg is sent when the user opens a report.
type SelectedReportMsg struct {
	ReportID string
}

// StatusChangeMsg asks the parent to change a report's status.
type StatusChangeMsg struct {
	ReportID string
	Status   model.Status
}

// DeleteRequestMsg asks the parent to delete a report.
type DeleteRequestMsg struct {
	ReportID string
}

// Model is the report list view with status filter and search.
type Model struct {
	list        list.Model
	source      Source
	keys        *keys.KeyMap
	criteria    reports.Criteria
	inFlight    map[string]bool
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new report list model.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	inFlight := make(map[string]bool)
	delegate := ItemDelegate{inFlight: inFlight}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Reports"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search id, type, submitter, location..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		source:      src,
		keys:        k,
		criteria:    reports.AllReports,
		inFlight:    inFlight,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns a command that computes the initial view.
func (m Model) Init() tea.Cmd {
	return m.LoadReports()
}

// Update handles messages for the report list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReportsLoadedMsg:
		items := make([]list.Item, len(msg.Reports))
		for i, r := range msg.Reports {
			items[i] = ReportItem{Report: r}
		}
		for id := range m.inFlight {
			delete(m.inFlight, id)
		}
		for _, id := range msg.InFlight {
			m.inFlight[id] = true
		}
		m.list.Title = m.title(len(msg.Reports))
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	// Delegate to list model for other messages
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode. The view is
// refiltered on every keystroke.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.criteria.SearchTerm = ""
		return m, m.LoadReports()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.criteria.SearchTerm = m.searchInput.Value()
	return m, tea.Batch(cmd, m.LoadReports())
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if r, ok := m.SelectedReport(); ok {
			return m, func() tea.Msg { return SelectedReportMsg{ReportID: r.ID} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.criteria.SearchTerm)
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.CycleStatus):
		m.criteria.StatusFilter = reports.NextStatusFilter(m.criteria.StatusFilter)
		return m, m.LoadReports()

	case key.Matches(msg, m.keys.ClearFilter):
		cmd := m.ClearFilters()
		return m, cmd

	case key.Matches(msg, m.keys.SetPending):
		return m, m.requestStatus(model.StatusPending)
	case key.Matches(msg, m.keys.SetInProgress):
		return m, m.requestStatus(model.StatusInProgress)
	case key.Matches(msg, m.keys.SetResolved):
		return m, m.requestStatus(model.StatusResolved)

	case key.Matches(msg, m.keys.Delete):
		if r, ok := m.SelectedReport(); ok {
			return m, func() tea.Msg { return DeleteRequestMsg{ReportID: r.ID} }
		}
		return m, nil
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) requestStatus(status model.Status) tea.Cmd {
	r, ok := m.SelectedReport()
	if !ok || r.Status == status {
		return nil
	}
	return func() tea.Msg {
		return StatusChangeMsg{ReportID: r.ID, Status: status}
	}
}

// SelectedReport returns the highlighted report.
func (m Model) SelectedReport() (model.Report, bool) {
	item, ok := m.list.SelectedItem().(ReportItem)
	if !ok {
		return model.Report{}, false
	}
	return item.Report, true
}

// Criteria returns the active filter.
func (m Model) Criteria() reports.Criteria {
	return m.criteria
}

// SetStatusFilter applies a status filter ("All" clears it).
func (m *Model) SetStatusFilter(status string) tea.Cmd {
	m.criteria.StatusFilter = status
	return m.LoadReports()
}

// ClearFilters resets the status filter and search term.
func (m *Model) ClearFilters() tea.Cmd {
	m.criteria = reports.AllReports
	m.searchInput.Reset()
	return m.LoadReports()
}

// FilterSummary describes the active filter for the status bar, or "" when
// nothing is filtered.
func (m Model) FilterSummary() string {
	if m.criteria.IsZero() {
		return ""
	}
	summary := "status: " + m.criteria.StatusFilter
	if m.criteria.StatusFilter == "" {
		summary = "status: " + reports.StatusAll
	}
	if m.criteria.SearchTerm != "" {
		summary += fmt.Sprintf(" | search: %q", m.criteria.SearchTerm)
	}
	return summary
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

func (m Model) title(n int) string {
	if m.criteria.IsZero() {
		return fmt.Sprintf("All Reports (%d)", n)
	}
	return fmt.Sprintf("Filtered Results (%d)", n)
}

// View renders the report list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no reports are shown.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if !m.criteria.IsZero() {
		return style.Render("No matching reports.\nPress c to clear filters.")
	}

	return style.Render("No reports yet.\n\nPress r to refresh.")
}

// LoadReports returns a tea.Cmd that recomputes the filtered view.
func (m Model) LoadReports() tea.Cmd {
	criteria := m.criteria
	src := m.source
	return func() tea.Msg {
		ops := src.PendingOperations()
		inFlight := make([]string, 0, len(ops))
		for _, op := range ops {
			inFlight = append(inFlight, op.ReportID)
		}
		return ReportsLoadedMsg{
			Reports:  src.GetFiltered(criteria),
			InFlight: inFlight,
		}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
