package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/theme"
)

// Model is the shortcut overlay, one block per screen.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates the help overlay.
func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width - 4
	return Model{keys: k, help: h, width: width, height: height}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) { return m, nil }

// View renders the overlay.
func (m Model) View() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	section := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)

	blocks := []string{heading.MarginBottom(1).Render("EcoTrack Shortcuts")}
	for _, s := range m.keys.Sections() {
		blocks = append(blocks,
			section.Render(s.Title),
			m.help.FullHelpView([][]key.Binding{s.Bindings}),
			"",
		)
	}
	blocks = append(blocks, theme.HelpStyle.Render(
		"Status changes and deletes show at once and revert if the server rejects them.\n"+
			"The bell counts unread notifications; opening one marks it read.\n"+
			"Press L when the status bar asks for a new API token.",
	))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
