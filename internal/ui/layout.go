package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/notify"
	"github.com/nhle/ecotrack-console/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	TabsHeight      int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// The header, tab row and status bar each take one line.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		TabsHeight:      1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, tabs and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.TabsHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with a title, the unread badge
// and the sync status.
func (l Layout) RenderHeader(title string, unread int, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	badge := ""
	if text := notify.BadgeText(unread); text != "" {
		badge = theme.BadgeStyle.Render("🔔 " + text)
	}

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(badge) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		badge,
		statusRendered,
	)
}

// RenderTabs renders the page selector with the active page highlighted.
func (l Layout) RenderTabs(active model.Page) string {
	tabs := make([]string, 0, len(model.Pages))
	for _, p := range model.Pages {
		style := theme.TabStyle
		if p == active {
			style = theme.ActiveTabStyle
		}
		tabs = append(tabs, style.Render(string(p)))
	}
	return lipgloss.NewStyle().
		MaxWidth(l.Width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

// RenderStatusBar renders the bottom status bar with keyboard hints. When
// isError is set the bar is drawn in the error style.
func (l Layout) RenderStatusBar(hints string, isError bool) string {
	style := theme.StatusBarStyle
	if isError {
		style = theme.ErrorBarStyle
	}
	rendered := style.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, tabs, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	tabs string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		tabs,
		content,
		statusBar,
	)
}
