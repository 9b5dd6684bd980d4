package login

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/credential"
	"github.com/nhle/ecotrack-console/internal/theme"
)

// TokenStore persists the API token.
type TokenStore interface {
	Set(key, value string) error
}

// TokenSavedMsg signals that a new token is stored and syncing can resume.
type TokenSavedMsg struct{}

// CancelledMsg signals the user closed the sign-in form without saving.
type CancelledMsg struct{}

// tokenSaveResultMsg is sent after the keyring write finishes.
type tokenSaveResultMsg struct {
	err error
}

// Model is the sign-in view. It asks for an API token and stores it in the
// system keyring.
type Model struct {
	form    *huh.Form
	store   TokenStore
	apiURL  string
	reason  string
	token   string
	saving  bool
	err     error
	spinner spinner.Model

	width, height int
}

// New creates a sign-in view. reason is shown above the form, typically the
// message of the auth failure that opened it.
func New(store TokenStore, apiURL, reason string, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		store:   store,
		apiURL:  apiURL,
		reason:  reason,
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the sign-in view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tokenSaveResultMsg:
		m.saving = false
		if msg.err != nil {
			m.err = msg.err
			m.token = ""
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, func() tea.Msg { return TokenSavedMsg{} }

	case spinner.TickMsg:
		if !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.saving {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.saving = true
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.saveToken(strings.TrimSpace(m.token)))
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelledMsg{} }
	}

	return m, cmd
}

func (m *Model) buildForm() *huh.Form {
	desc := "Paste an admin API token."
	if m.apiURL != "" {
		desc = fmt.Sprintf("Paste an admin API token for %s.", m.apiURL)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Token").
				Description(desc).
				EchoMode(huh.EchoModePassword).
				Value(&m.token).
				Validate(credential.ValidateToken),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m Model) saveToken(token string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return tokenSaveResultMsg{err: store.Set(credential.TokenKey, token)}
	}
}

// View renders the sign-in view.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{titleStyle.Render("Sign in")}

	if m.reason != "" {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render(m.reason))
		sections = append(sections, "")
	}

	if m.saving {
		sections = append(sections, m.spinner.View()+" Saving token...")
	} else {
		sections = append(sections, m.form.View())
	}

	if m.err != nil {
		sections = append(sections, "")
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render("Could not save token: "+m.err.Error()))
	}

	sections = append(sections, "")
	sections = append(sections, theme.HelpStyle.Render("enter save · esc cancel"))

	return theme.DetailPanelStyle.
		Width(m.formWidth()).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the sign-in view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form = m.form.WithWidth(m.formWidth())
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
