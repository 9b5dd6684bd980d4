package notifications

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/theme"
)

// Source supplies the current notifications with read flags applied.
type Source interface {
	Items() []model.NotificationItem
}

// CloseMsg signals the parent to close the panel.
type CloseMsg struct{}

// OpenMsg asks the parent to acknowledge a notification and navigate to
// the page it refers to.
type OpenMsg struct {
	Item model.NotificationItem
}

// ReadAllMsg asks the parent to acknowledge every notification.
type ReadAllMsg struct{}

// itemsLoadedMsg carries a fresh copy of the notifications.
type itemsLoadedMsg struct {
	items []model.NotificationItem
}

// Model is the notification panel.
type Model struct {
	source      Source
	keys        *keys.KeyMap
	items       []model.NotificationItem
	selectedIdx int
	width       int
	height      int
}

// New creates a notification panel.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	return Model{
		source: src,
		keys:   k,
		width:  width, height: height,
	}
}

// Init loads the current notifications.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case itemsLoadedMsg:
		m.items = msg.items
		if m.selectedIdx >= len(m.items) {
			m.selectedIdx = max(len(m.items)-1, 0)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Notifications):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.items) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.items)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.items) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.items) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(m.items) == 0 {
			return m, nil
		}
		item := m.items[m.selectedIdx]
		return m, func() tea.Msg { return OpenMsg{Item: item} }

	case msg.String() == "a":
		if m.unread() == 0 {
			return m, nil
		}
		return m, func() tea.Msg { return ReadAllMsg{} }
	}
	return m, nil
}

func (m Model) unread() int {
	n := 0
	for _, it := range m.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

// View renders the panel.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render(fmt.Sprintf("Notifications (%d unread)", m.unread())))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No new users or reports."))
	} else {
		for i, it := range m.items {
			b.WriteString(m.renderItem(it, i == m.selectedIdx))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("enter open | a mark all read | esc close"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) renderItem(it model.NotificationItem, selected bool) string {
	dot := "  "
	if !it.IsRead {
		dot = lipgloss.NewStyle().Foreground(theme.ColorRed).Render("●") + " "
	}

	icon := "📝"
	if it.SourceKind == model.SourceKindUser {
		icon = "👤"
	}

	label := fmt.Sprintf("%s%s  %s", dot, icon, it.Summary)
	if it.Detail != "" {
		label += lipgloss.NewStyle().Foreground(theme.ColorGray).Render("  " + truncate(it.Detail, 60))
	}

	if it.IsRead {
		label = theme.DimmedStyle.Render(label)
	}
	if selected {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Reload re-reads the notifications from the source.
func (m Model) Reload() tea.Cmd {
	src := m.source
	return func() tea.Msg {
		return itemsLoadedMsg{items: src.Items()}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
