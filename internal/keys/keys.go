package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Pages
	NextPage key.Binding
	PrevPage key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Filters
	CycleStatus key.Binding
	CycleRole   key.Binding
	ClearFilter key.Binding

	// Report actions
	SetPending    key.Binding
	SetInProgress key.Binding
	SetResolved   key.Binding
	Delete        key.Binding

	// Notifications panel
	Notifications key.Binding

	// Sign in with a new API token
	Login key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous page"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle status filter"),
		),
		CycleRole: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "cycle role filter"),
		),
		ClearFilter: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear filters"),
		),
		SetPending: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "mark pending"),
		),
		SetInProgress: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "mark in progress"),
		),
		SetResolved: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "mark resolved"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Notifications: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "notifications"),
		),
		Login: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "sign in"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Search,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.NextPage, k.PrevPage, k.Search, k.Command, k.Help, k.Refresh},
		{k.CycleStatus, k.CycleRole, k.ClearFilter},
		{k.SetPending, k.SetInProgress, k.SetResolved, k.Delete},
		{k.Notifications, k.Login},
	}
}

// Section is a titled group of bindings for the help overlay.
type Section struct {
	Title    string
	Bindings []key.Binding
}

// Sections groups the bindings by the screen they act on.
func (k *KeyMap) Sections() []Section {
	return []Section{
		{"Everywhere", []key.Binding{k.NextPage, k.PrevPage, k.Refresh, k.Notifications, k.Command, k.Login, k.Help, k.Quit}},
		{"Reports", []key.Binding{k.Up, k.Down, k.Select, k.Search, k.CycleStatus, k.ClearFilter, k.SetPending, k.SetInProgress, k.SetResolved, k.Delete}},
		{"Report detail", []key.Binding{k.SetPending, k.SetInProgress, k.SetResolved, k.Delete, k.Back}},
		{"Users", []key.Binding{k.Search, k.CycleRole, k.CycleStatus, k.ClearFilter, k.Delete}},
		{"Schedule", []key.Binding{k.Up, k.Down, k.Delete}},
		{"Notifications", []key.Binding{k.Up, k.Down, k.Select, k.Back}},
	}
}
