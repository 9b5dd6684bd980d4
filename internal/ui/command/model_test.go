package command_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/ui/command"
)

func TestMatchingByPrefix(t *testing.T) {
	got := command.Matching("filter")
	require.Len(t, got, 3)
	assert.Equal(t, "filter pending", got[0].Name)

	assert.Len(t, command.Matching(""), len(command.Commands))
	assert.Empty(t, command.Matching("nope"))
	assert.Len(t, command.Matching("  RE"), 3)
}

func typeText(m command.Model, s string) command.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestEnterEmitsAndRepeatsLastCommand(t *testing.T) {
	m := command.New(80, 24)
	m.Focus()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	m = typeText(m, "Users")
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, command.CommandMsg("users"), cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, command.CommandMsg("users"), cmd())
}
