package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Entry is one palette command.
type Entry struct {
	Name        string
	Description string
}

// Commands lists the palette commands in display order.
var Commands = []Entry{
	{"refresh", "sync everything now"},
	{"dashboard", "go to the dashboard"},
	{"reports", "go to the report list"},
	{"users", "go to the user list"},
	{"schedule", "go to the collection schedule"},
	{"notifications", "open notifications"},
	{"read all", "mark every notification read"},
	{"filter pending", "show pending reports"},
	{"filter in progress", "show reports in progress"},
	{"filter resolved", "show resolved reports"},
	{"clear filters", "reset report filters"},
	{"login", "enter an API token"},
	{"logout", "forget the API token"},
	{"quit", "exit the console"},
}

// Model is the command palette view. Enter on an empty input repeats the
// last command.
type Model struct {
	input  textinput.Model
	last   string
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Width = width - 6
	ti.ShowSuggestions = true
	ti.SetSuggestions(names())

	return Model{input: ti, width: width, height: height}
}

func names() []string {
	out := make([]string, len(Commands))
	for i, c := range Commands {
		out[i] = c.Name
	}
	return out
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		cmd := strings.ToLower(strings.TrimSpace(m.input.Value()))
		m.input.Reset()
		if cmd == "" {
			cmd = m.last
		}
		if cmd == "" {
			return m, nil
		}
		m.last = cmd
		return m, func() tea.Msg { return CommandMsg(cmd) }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Matching returns the commands whose name starts with prefix.
func Matching(prefix string) []Entry {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []Entry
	for _, c := range Commands {
		if strings.HasPrefix(c.Name, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// View renders the command palette.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Run Command")

	rows := []string{m.input.View(), ""}
	matches := Matching(m.input.Value())
	if len(matches) == 0 {
		rows = append(rows, theme.DimmedStyle.Render("no matching command"))
	}
	for _, c := range matches {
		rows = append(rows, fmt.Sprintf("%-20s %s", c.Name, theme.HelpStyle.Render(c.Description)))
	}
	if m.last != "" {
		rows = append(rows, "", theme.DimmedStyle.Render("enter on empty input repeats: "+m.last))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, rows...)...)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
