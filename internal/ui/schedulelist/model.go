package schedulelist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/schedules"
	"github.com/nhle/ecotrack-console/internal/theme"
)

// Source answers schedule board queries.
type Source interface {
	Week() []schedules.Day
}

// DeleteRequestMsg asks the parent to delete a confirmed slot.
type DeleteRequestMsg struct {
	ScheduleID string
	Label      string
}

type weekLoadedMsg struct {
	week []schedules.Day
}

// Model is the Schedule page: the week as seven day blocks, with one slot
// selected at a time.
type Model struct {
	source      Source
	keys        *keys.KeyMap
	week        []schedules.Day
	slots       []model.Schedule
	selectedIdx int
	confirmForm *huh.Form
	confirm     *bool
	confirming  bool
	width       int
	height      int
}

// New creates the Schedule page.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	return Model{source: src, keys: k, width: width, height: height}
}

// Init loads the cached schedule.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(weekLoadedMsg); ok {
		m.week = msg.week
		var slots []model.Schedule
		for _, d := range m.week {
			slots = append(slots, d.Slots...)
		}
		m.slots = slots
		if m.selectedIdx >= len(m.slots) {
			m.selectedIdx = max(len(m.slots)-1, 0)
		}
		return m, nil
	}

	if m.confirming {
		return m.updateConfirm(msg)
	}

	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msgKey, m.keys.Down):
		if len(m.slots) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.slots)
		}
	case key.Matches(msgKey, m.keys.Up):
		if len(m.slots) > 0 {
			m.selectedIdx = (m.selectedIdx - 1 + len(m.slots)) % len(m.slots)
		}
	case key.Matches(msgKey, m.keys.Delete):
		if len(m.slots) == 0 {
			return m, nil
		}
		m.confirm = new(bool)
		m.confirming = true
		m.confirmForm = buildConfirmForm(m.slots[m.selectedIdx], m.confirm, m.width)
		return m, m.confirmForm.Init()
	}
	return m, nil
}

// confirm must outlive copies of the model.
func buildConfirmForm(s model.Schedule, confirm *bool, width int) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s on %s?", s.Type, s.Day)).
				Description("The slot is removed on the server. This cannot be undone.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(confirm),
		),
	).WithWidth(min(max(width-4, 40), 100))
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.confirming = false
		if *m.confirm {
			if s, ok := m.Selected(); ok {
				label := fmt.Sprintf("%s on %s", s.Type, s.Day)
				return m, func() tea.Msg { return DeleteRequestMsg{ScheduleID: s.ID, Label: label} }
			}
		}
		return m, nil
	case huh.StateAborted:
		m.confirming = false
		return m, nil
	}
	return m, cmd
}

// Selected returns the highlighted slot.
func (m Model) Selected() (model.Schedule, bool) {
	if m.selectedIdx < len(m.slots) {
		return m.slots[m.selectedIdx], true
	}
	return model.Schedule{}, false
}

// Capturing reports whether a delete confirmation is open.
func (m Model) Capturing() bool {
	return m.confirming
}

// View renders the Schedule page.
func (m Model) View() string {
	if m.confirming && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder
	guide := make([]string, len(model.WasteTypes))
	for i, t := range model.WasteTypes {
		guide[i] = theme.WasteStyle(t).Render("■ " + t)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, guide...))
	b.WriteString("\n\n")

	if len(m.week) == 0 {
		b.WriteString(theme.DimmedStyle.Render("No schedule loaded yet."))
	}

	day := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	idx := 0
	for _, d := range m.week {
		b.WriteString(day.Render(fmt.Sprintf("%-10s", d.Name)))
		b.WriteString(theme.DimmedStyle.Render(d.Date))
		b.WriteString("\n")
		if len(d.Slots) == 0 {
			b.WriteString(theme.ListItemStyle.Render(theme.DimmedStyle.Render("No Collection")))
			b.WriteString("\n")
		}
		for _, s := range d.Slots {
			label := fmt.Sprintf("%s - %s %s", s.StartTime, s.EndTime, theme.WasteStyle(s.Type).Render(s.Type))
			if idx == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
			idx++
		}
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("j/k select | d delete | edit with: ecotrack schedules edit <id>"))

	return lipgloss.NewStyle().Padding(0, 1).Width(m.width).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Reload re-reads the week from the board.
func (m Model) Reload() tea.Cmd {
	src := m.source
	return func() tea.Msg {
		return weekLoadedMsg{week: src.Week()}
	}
}
