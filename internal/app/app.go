package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/notify"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/schedules"
	"github.com/nhle/ecotrack-console/internal/store"
	appsync "github.com/nhle/ecotrack-console/internal/sync"
	"github.com/nhle/ecotrack-console/internal/ui"
	"github.com/nhle/ecotrack-console/internal/ui/command"
	"github.com/nhle/ecotrack-console/internal/ui/dashboard"
	"github.com/nhle/ecotrack-console/internal/ui/detail"
	helpview "github.com/nhle/ecotrack-console/internal/ui/help"
	"github.com/nhle/ecotrack-console/internal/ui/login"
	"github.com/nhle/ecotrack-console/internal/ui/notifications"
	"github.com/nhle/ecotrack-console/internal/ui/reportlist"
	"github.com/nhle/ecotrack-console/internal/ui/schedulelist"
	"github.com/nhle/ecotrack-console/internal/ui/userlist"
	"github.com/nhle/ecotrack-console/internal/users"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewPage ViewState = iota
	ViewDetail
	ViewNotifications
	ViewHelp
	ViewCommand
	ViewLogin
)

// Credentials stores and removes the API token.
type Credentials interface {
	Set(key, value string) error
	Delete(key string) error
}

// Deps are the services the console UI drives.
type Deps struct {
	Store       store.Store
	Reports     *reports.Manager
	Users       *users.Directory
	Schedules   *schedules.Board
	Notify      *notify.Aggregator
	Poller      *appsync.Poller
	Credentials Credentials

	// APIURL is shown on the sign-in form.
	APIURL string

	Logger *log.Logger
}

// Model is the root Bubble Tea model that manages page routing, layout and
// the hand-off between views and the sync services.
type Model struct {
	deps         Deps
	logger       *log.Logger
	currentView  ViewState
	previousView ViewState
	page         model.Page
	layout       ui.Layout
	keys         *keys.KeyMap

	dashboard     dashboard.Model
	reportList    reportlist.Model
	detail        detail.Model
	userList      userlist.Model
	scheduleList  schedulelist.Model
	notifications notifications.Model
	helpView      helpview.Model
	commandView   command.Model
	loginView     login.Model

	ready            bool
	unreadCount      int
	authErrorMessage string
	notice           string
	noticeIsError    bool
}

// New creates the root application model.
func New(deps Deps) Model {
	km := keys.DefaultKeyMap()

	return Model{
		deps:          deps,
		logger:        logging.OrDiscard(deps.Logger),
		currentView:   ViewPage,
		page:          model.PageDashboard,
		keys:          km,
		dashboard:     dashboard.New(snapshotFunc(deps), 80, 24),
		reportList:    reportlist.New(deps.Reports, km, 80, 24),
		detail:        detail.New(km, 80, 24),
		userList:      userlist.New(deps.Users, km, 80, 24),
		scheduleList:  schedulelist.New(deps.Schedules, km, 80, 24),
		notifications: notifications.New(deps.Notify, km, 80, 24),
		helpView:      helpview.New(km, 80, 24),
		commandView:   command.New(80, 24),
	}
}

// snapshotFunc captures the dashboard counters from the live services.
func snapshotFunc(deps Deps) dashboard.SnapshotFunc {
	return func() dashboard.Snapshot {
		return dashboard.Snapshot{
			Reports:  deps.Reports.Stats(),
			Users:    deps.Users.Stats(),
			Unread:   deps.Notify.UnreadCount(),
			Recent:   dashboard.RecentReports(deps.Reports.All()),
			Statuses: deps.Poller.GetStatuses(),
		}
	}
}

// Init restores the last session, then starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadLastPage(),
		m.restoreSnapshot(),
		m.reportList.Init(),
		m.userList.Init(),
		m.scheduleList.Init(),
		m.dashboard.Init(),
		m.waitForReportChange(),
		m.poller().Start(),
	)
}

func (m Model) poller() *appsync.Poller {
	return m.deps.Poller
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.dashboard.SetSize(w, h)
		m.reportList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.userList.SetSize(w, h)
		m.scheduleList.SetSize(w, h)
		m.notifications.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		if m.currentView == ViewLogin {
			m.loginView.SetSize(w, h)
		}
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case pageLoadedMsg:
		m.page = msg.page
		return m, nil

	case appsync.SyncResultMsg:
		if msg.AuthError != nil {
			m.authErrorMessage = msg.AuthError.Message
		} else if msg.Error == nil {
			m.authErrorMessage = ""
		}

		cmds := []tea.Cmd{
			m.poller().WaitForNextResult(),
			m.dashboard.Reload(),
			m.fetchUnreadCount(),
		}
		switch msg.Job {
		case appsync.JobUsers:
			cmds = append(cmds, m.userList.Reload())
		case appsync.JobSchedules:
			cmds = append(cmds, m.scheduleList.Reload())
		case appsync.JobNotifications:
			cmds = append(cmds, m.notifications.Reload())
		}
		return m, tea.Batch(cmds...)

	case reportsChangedMsg:
		cmds := []tea.Cmd{
			m.waitForReportChange(),
			m.reportList.LoadReports(),
			m.dashboard.Reload(),
		}
		if m.currentView == ViewDetail {
			cmds = append(cmds, m.loadReportDetail(m.detail.ReportID()))
		}
		return m, tea.Batch(cmds...)

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case reportlist.SelectedReportMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		return m, m.loadReportDetail(msg.ReportID)

	case detail.DetailLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case reportGoneMsg:
		if m.currentView == ViewDetail && m.detail.ReportID() == msg.id {
			m.currentView = ViewPage
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewPage
		return m, m.reportList.LoadReports()

	case reportlist.StatusChangeMsg:
		return m, m.updateStatus(msg.ReportID, msg.Status)

	case reportlist.DeleteRequestMsg:
		if m.currentView == ViewDetail {
			m.currentView = ViewPage
		}
		return m, m.deleteReport(msg.ReportID)

	case statusUpdatedMsg:
		if msg.err != nil {
			m.showError(fmt.Sprintf("Status change for #%s reverted", shortID(msg.id)), msg.err)
			return m, nil
		}
		m.showNotice(fmt.Sprintf("#%s marked %s", shortID(msg.id), msg.status))
		return m, nil

	case reportDeletedMsg:
		if msg.err != nil {
			m.showError(fmt.Sprintf("Delete of #%s reverted", shortID(msg.id)), msg.err)
			return m, nil
		}
		m.showNotice(fmt.Sprintf("Report #%s deleted", shortID(msg.id)))
		return m, nil

	case userlist.DeleteRequestMsg:
		return m, m.deleteUser(msg.UserID, msg.Name)

	case userDeletedMsg:
		if msg.err != nil {
			m.showError(fmt.Sprintf("Could not delete %s", msg.name), msg.err)
			return m, nil
		}
		m.showNotice(fmt.Sprintf("Deleted %s", msg.name))
		return m, tea.Batch(m.userList.Reload(), m.dashboard.Reload())

	case schedulelist.DeleteRequestMsg:
		return m, m.deleteSchedule(msg.ScheduleID, msg.Label)

	case scheduleDeletedMsg:
		if msg.err != nil {
			m.showError(fmt.Sprintf("Could not delete %s", msg.label), msg.err)
			return m, nil
		}
		m.showNotice(fmt.Sprintf("Deleted %s", msg.label))
		return m, m.scheduleList.Reload()

	case notifications.OpenMsg:
		m.currentView = ViewPage
		m.page = msg.Item.Page()
		return m, tea.Batch(
			m.acknowledge(msg.Item.UniqueID),
			m.savePage(m.page),
			m.reloadPage(),
		)

	case notifications.ReadAllMsg:
		return m, m.readAll()

	case notifications.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case acknowledgedMsg:
		if msg.err != nil {
			m.showError("Could not mark notification read", msg.err)
		}
		return m, tea.Batch(m.fetchUnreadCount(), m.notifications.Reload(), m.dashboard.Reload())

	case readAllDoneMsg:
		if msg.err != nil {
			m.showError("Could not mark all notifications read", msg.err)
		} else {
			m.showNotice(fmt.Sprintf("Marked %d notifications read", msg.count))
		}
		return m, tea.Batch(m.fetchUnreadCount(), m.notifications.Reload(), m.dashboard.Reload())

	case login.TokenSavedMsg:
		m.currentView = m.previousView
		m.authErrorMessage = ""
		m.showNotice("Token saved, syncing...")
		return m, m.poller().RefreshAll()

	case login.CancelledMsg:
		m.currentView = m.previousView
		return m, nil

	case loggedOutMsg:
		if msg.err != nil {
			m.showError("Could not remove token", msg.err)
			return m, nil
		}
		m.showNotice("Signed out")
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		m.notice = ""

		if msg.String() == "ctrl+c" {
			m.poller().Stop()
			return m, tea.Quit
		}

		if !m.capturingInput() {
			if handled, next, cmd := m.handleGlobalKey(msg); handled {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturingInput reports whether the active view consumes raw key input,
// in which case global shortcuts are not applied.
func (m Model) capturingInput() bool {
	switch m.currentView {
	case ViewCommand, ViewLogin:
		return true
	case ViewPage:
		switch m.page {
		case model.PageReports:
			return m.reportList.Searching()
		case model.PageUsers:
			return m.userList.Capturing()
		case model.PageSchedule:
			return m.scheduleList.Capturing()
		}
	}
	return false
}

// handleGlobalKey applies shortcuts that work across views.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewPage {
			m.poller().Stop()
			return true, m, tea.Quit
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return true, m, cmd

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}

	case key.Matches(msg, m.keys.NextPage):
		if m.currentView == ViewPage {
			cmd := m.switchPage(m.page.Next())
			return true, m, cmd
		}

	case key.Matches(msg, m.keys.PrevPage):
		if m.currentView == ViewPage {
			cmd := m.switchPage(m.page.Prev())
			return true, m, cmd
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewPage {
			m.showNotice("Refreshing...")
			return true, m, m.poller().RefreshAll()
		}

	case key.Matches(msg, m.keys.Notifications):
		if m.currentView == ViewPage || m.currentView == ViewDetail {
			m.previousView = m.currentView
			m.currentView = ViewNotifications
			return true, m, m.notifications.Reload()
		}

	case key.Matches(msg, m.keys.Login):
		if m.currentView != ViewLogin {
			cmd := m.openLogin()
			return true, m, cmd
		}
	}
	return false, m, nil
}

// switchPage moves to another top-level page and remembers it.
func (m *Model) switchPage(p model.Page) tea.Cmd {
	m.page = p
	return tea.Batch(m.savePage(p), m.reloadPage())
}

// reloadPage refreshes the data of the current page.
func (m Model) reloadPage() tea.Cmd {
	switch m.page {
	case model.PageReports:
		return m.reportList.LoadReports()
	case model.PageUsers:
		return m.userList.Reload()
	case model.PageSchedule:
		return m.scheduleList.Reload()
	default:
		return m.dashboard.Reload()
	}
}

// openLogin shows the sign-in form.
func (m *Model) openLogin() tea.Cmd {
	if m.currentView != ViewLogin {
		m.previousView = m.currentView
	}
	m.currentView = ViewLogin
	m.loginView = login.New(
		m.deps.Credentials,
		m.deps.APIURL,
		m.authErrorMessage,
		m.layout.ContentWidth(),
		m.layout.ContentHeight(),
	)
	return m.loginView.Init()
}

// updateActiveView dispatches key input to the currently active view.
// Other messages are broadcast so background pages keep their data current.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		return m.broadcast(msg)
	}

	var cmd tea.Cmd

	switch m.currentView {
	case ViewPage:
		switch m.page {
		case model.PageReports:
			m.reportList, cmd = m.reportList.Update(msg)
		case model.PageUsers:
			m.userList, cmd = m.userList.Update(msg)
		case model.PageSchedule:
			m.scheduleList, cmd = m.scheduleList.Update(msg)
		default:
			m.dashboard, cmd = m.dashboard.Update(msg)
		}
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewNotifications:
		m.notifications, cmd = m.notifications.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	}

	return m, cmd
}

// broadcast sends a non-key message to every view.
func (m Model) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 8)

	m.dashboard, cmds[0] = m.dashboard.Update(msg)
	m.reportList, cmds[1] = m.reportList.Update(msg)
	m.detail, cmds[2] = m.detail.Update(msg)
	m.userList, cmds[3] = m.userList.Update(msg)
	m.notifications, cmds[4] = m.notifications.Update(msg)
	m.commandView, cmds[5] = m.commandView.Update(msg)
	m.scheduleList, cmds[6] = m.scheduleList.Update(msg)
	if m.currentView == ViewLogin {
		m.loginView, cmds[7] = m.loginView.Update(msg)
	}

	return m, tea.Batch(cmds...)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("EcoTrack Console", m.unreadCount, m.syncStatus())
	tabs := m.layout.RenderTabs(m.page)
	content := m.renderContent()
	hints, isError := m.statusLine()
	statusBar := m.layout.RenderStatusBar(hints, isError)

	return m.layout.RenderWithFrame(header, tabs, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewPage:
		switch m.page {
		case model.PageReports:
			return m.reportList.View()
		case model.PageUsers:
			return m.userList.View()
		case model.PageSchedule:
			return m.scheduleList.View()
		default:
			return m.dashboard.View()
		}
	case ViewDetail:
		return m.detail.View()
	case ViewNotifications:
		return m.notifications.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewLogin:
		return m.loginView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the combined sync state.
func (m Model) syncStatus() string {
	statuses := m.poller().GetStatuses()
	if len(statuses) == 0 {
		return "offline"
	}

	running := 0
	var failed []string
	for _, s := range statuses {
		switch s.State {
		case appsync.SyncRunning:
			running++
		case appsync.SyncError:
			failed = append(failed, string(s.Job))
		}
	}

	if running > 0 {
		return fmt.Sprintf("syncing (%d)", running)
	}
	if len(failed) > 0 {
		return "⚠ stale: " + strings.Join(failed, ", ")
	}
	return "up to date"
}

// statusLine returns the status bar text and whether it reports an error.
func (m Model) statusLine() (string, bool) {
	if m.notice != "" {
		return m.notice, m.noticeIsError
	}
	// Show auth error prominently when present.
	if m.authErrorMessage != "" && m.currentView != ViewLogin {
		return m.authErrorMessage, true
	}
	return m.keyHints(), false
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | 1/2/3 set status | d delete | j/k scroll"
	case ViewNotifications:
		return "enter open | a mark all read | esc close"
	case ViewLogin:
		return "enter save | esc cancel"
	}

	switch m.page {
	case model.PageReports:
		if summary := m.reportList.FilterSummary(); summary != "" {
			return summary + " | c clear"
		}
		return "q quit | ? help | / search | f status | 1/2/3 set status | d delete | tab page"
	case model.PageUsers:
		return "q quit | ? help | / search | R role | f status | d delete | tab page"
	case model.PageSchedule:
		return "q quit | ? help | j/k select | d delete | tab page"
	default:
		return "q quit | ? help | r refresh | n notifications | : command | tab page"
	}
}

// showNotice puts a transient message in the status bar.
func (m *Model) showNotice(text string) {
	m.notice = text
	m.noticeIsError = false
}

// showError puts a transient error in the status bar. Auth failures also
// raise the sign-in prompt.
func (m *Model) showError(prefix string, err error) {
	m.notice = prefix + ": " + describeError(err)
	m.noticeIsError = true
	if isAuthError(err) {
		m.authErrorMessage = authPrompt
	}
	m.logger.Warn(prefix, "err", err)
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh", "sync":
		return m.poller().RefreshAll()
	case "quit", "q":
		m.poller().Stop()
		return tea.Quit
	case "dashboard":
		m.currentView = ViewPage
		return m.switchPage(model.PageDashboard)
	case "reports":
		m.currentView = ViewPage
		return m.switchPage(model.PageReports)
	case "users":
		m.currentView = ViewPage
		return m.switchPage(model.PageUsers)
	case "schedule", "schedules":
		m.currentView = ViewPage
		return m.switchPage(model.PageSchedule)
	case "notifications":
		m.previousView = ViewPage
		m.currentView = ViewNotifications
		return m.notifications.Reload()
	case "read all", "mark all read":
		return m.readAll()
	case "filter pending":
		return m.filterReports(string(model.StatusPending))
	case "filter in progress":
		return m.filterReports(string(model.StatusInProgress))
	case "filter resolved":
		return m.filterReports(string(model.StatusResolved))
	case "clear filters", "clear":
		return m.reportList.ClearFilters()
	case "login", "sign in":
		return m.openLogin()
	case "logout", "sign out":
		return m.logout()
	default:
		m.showNotice(fmt.Sprintf("Unknown command %q", cmd))
		return nil
	}
}

// filterReports switches to the Reports page with a status filter.
func (m *Model) filterReports(status string) tea.Cmd {
	m.currentView = ViewPage
	m.reportList.SetStatusFilter(status)
	return m.switchPage(model.PageReports)
}
