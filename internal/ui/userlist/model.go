package userlist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/theme"
	"github.com/nhle/ecotrack-console/internal/users"
)

// Source answers user list queries.
type Source interface {
	List(f users.Filter) []model.User
	Stats() users.Stats
}

// DeleteRequestMsg asks the parent to delete a confirmed user.
type DeleteRequestMsg struct {
	UserID string
	Name   string
}

type usersLoadedMsg struct {
	users []model.User
	stats users.Stats
}

type userMode int

const (
	modeList userMode = iota
	modeSearch
	modeConfirmDelete
)

var (
	roleCycle   = []string{users.FilterAll, model.RoleAdmin, model.RoleUser}
	statusCycle = []string{users.FilterAll, model.UserActive, model.UserInactive}
)

// Model is the Users page.
type Model struct {
	mode        userMode
	source      Source
	keys        *keys.KeyMap
	users       []model.User
	stats       users.Stats
	filter      users.Filter
	selectedIdx int
	searchInput textinput.Model
	confirmForm *huh.Form
	confirm     *bool
	width       int
	height      int
}

// New creates the Users page.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "search name or email..."
	si.Prompt = "/ "

	return Model{
		mode:        modeList,
		source:      src,
		keys:        k,
		filter:      users.Filter{Role: users.FilterAll, Status: users.FilterAll},
		searchInput: si,
		width:       width, height: height,
	}
}

// Init loads the cached users.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case usersLoadedMsg:
		m.users = msg.users
		m.stats = msg.stats
		if m.selectedIdx >= len(m.users) {
			m.selectedIdx = max(len(m.users)-1, 0)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.handleSearchKey(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.handleListKey(msg)
		}
	}

	if m.mode == modeConfirmDelete {
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeList
		m.searchInput.Blur()
		return m, nil
	case "esc":
		m.mode = modeList
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.filter.Search = ""
		return m, m.Reload()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.filter.Search = m.searchInput.Value()
	return m, tea.Batch(cmd, m.Reload())
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.users) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.users)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.users) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.users) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.searchInput.SetValue(m.filter.Search)
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.CycleRole):
		m.filter.Role = next(roleCycle, m.filter.Role)
		return m, m.Reload()

	case key.Matches(msg, m.keys.CycleStatus):
		m.filter.Status = next(statusCycle, m.filter.Status)
		return m, m.Reload()

	case key.Matches(msg, m.keys.ClearFilter):
		m.filter = users.Filter{Role: users.FilterAll, Status: users.FilterAll}
		m.searchInput.Reset()
		return m, m.Reload()

	case key.Matches(msg, m.keys.Delete):
		if len(m.users) == 0 {
			return m, nil
		}
		m.confirm = new(bool)
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildConfirmForm() *huh.Form {
	name := ""
	if m.selectedIdx < len(m.users) {
		name = m.users[m.selectedIdx].FullName
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete user %q?", name)).
				Description("The account is removed on the server. This cannot be undone.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(m.confirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		m.mode = modeList
		if *m.confirm && m.selectedIdx < len(m.users) {
			u := m.users[m.selectedIdx]
			return m, func() tea.Msg {
				return DeleteRequestMsg{UserID: u.ID, Name: u.FullName}
			}
		}
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// Capturing reports whether the page is consuming keys for text entry or
// a confirmation.
func (m Model) Capturing() bool {
	return m.mode != modeList
}

// Filter returns the active filter.
func (m Model) Filter() users.Filter {
	return m.filter
}

// View renders the Users page.
func (m Model) View() string {
	if m.mode == modeConfirmDelete && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder

	b.WriteString(m.renderStats())
	b.WriteString("\n")

	if m.mode == modeSearch {
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	} else if m.filter.Active() {
		b.WriteString(theme.HelpStyle.Render(fmt.Sprintf(
			"role: %s | status: %s | search: %q",
			m.filter.Role, m.filter.Status, m.filter.Search,
		)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.users) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		if m.filter.Active() {
			b.WriteString(emptyStyle.Render("No matching users. Press 'c' to clear filters."))
		} else {
			b.WriteString(emptyStyle.Render("No users loaded yet."))
		}
	} else {
		for i, u := range m.users {
			b.WriteString(m.renderRow(u, i == m.selectedIdx))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(
		"/ search | R role | f status | c clear | d delete",
	))

	return lipgloss.NewStyle().Padding(0, 1).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) renderStats() string {
	card := func(label string, n int) string {
		return theme.StatCardStyle.Render(fmt.Sprintf("%s\n%d", label, n))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total", m.stats.Total),
		card("Active", m.stats.Active),
		card("Admins", m.stats.Admins),
		card("Inactive", m.stats.Inactive),
	)
}

func (m Model) renderRow(u model.User, selected bool) string {
	role := theme.RoleStyle(u.Role).Render(fmt.Sprintf("%-5s", u.Role))
	status := theme.UserStatusStyle(u.Status).Render(fmt.Sprintf("%-8s", u.Status))
	email := lipgloss.NewStyle().Foreground(theme.ColorGray).Render(u.Email)

	label := fmt.Sprintf("%s %s %-24s %s", role, status, u.FullName, email)
	if selected {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = width - 4
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// Reload re-reads the users matching the current filter.
func (m Model) Reload() tea.Cmd {
	src := m.source
	f := m.filter
	return func() tea.Msg {
		return usersLoadedMsg{users: src.List(f), stats: src.Stats()}
	}
}

func next(cycle []string, current string) string {
	for i, v := range cycle {
		if v == current {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
