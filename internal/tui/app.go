// Package tui is the terminal dashboard for training load and readiness.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/service"
)

// LoadReader is the read side the screens render from
type LoadReader interface {
	Timeline(windowDays int) ([]service.TimelinePoint, error)
	Current() (*service.CurrentState, error)
	Activities(limit, offset int) (*service.ActivityPage, error)
	ActivityDetail(id int64) (*service.ActivityDetail, error)
}

// Syncer runs a provider sync and reports API quota
type Syncer interface {
	SyncAll(ctx context.Context, progress chan<- service.SyncProgress) (*service.SyncResult, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenActivities
	ScreenActivityDetail
	ScreenStats
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard      DashboardModel
	activities     ActivitiesModel
	activityDetail ActivityDetailModel
	stats          StatsModel
	syncScreen     SyncModel
	help           HelpModel

	loads      LoadReader
	units      Units
	windowDays int

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App with all dependencies
func NewApp(loads LoadReader, syncer Syncer, units Units, windowDays int) *App {
	return &App{
		screen:     ScreenDashboard,
		loads:      loads,
		units:      units,
		windowDays: windowDays,
		dashboard:  NewDashboardModel(loads, units, windowDays, 0),
		activities: NewActivitiesModel(loads, units),
		stats:      NewStatsModel(loads),
		syncScreen: NewSyncModel(syncer),
		help:       NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.dashboard.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless in sync mode)
		if a.screen != ScreenSync || !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				a.dashboard = NewDashboardModel(a.loads, a.units, a.windowDays, a.width)
				return a, a.dashboard.Init()
			case "2":
				a.screen = ScreenActivities
				return a, a.activities.Init()
			case "3":
				a.screen = ScreenStats
				return a, a.stats.Init()
			case "4", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// Let 's' fall through to sync screen when already there
			case "?":
				if a.screen != ScreenHelp {
					a.prevScreen = a.screen
					a.screen = ScreenHelp
				}
				return a, nil
			case "esc":
				switch a.screen {
				case ScreenHelp:
					a.screen = a.prevScreen
					return a, nil
				case ScreenActivityDetail:
					a.screen = ScreenActivities
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.screen != ScreenDashboard {
			a.dashboard.width = msg.Width
		}

	case OpenActivityDetailMsg:
		a.screen = ScreenActivityDetail
		a.activityDetail = NewActivityDetailModel(a.loads, a.units, msg.ActivityID, a.width, a.height)
		return a, a.activityDetail.Init()

	case SyncCompleteMsg:
		a.status = msg.Status
		a.dashboard = NewDashboardModel(a.loads, a.units, a.windowDays, a.width)
		return a, a.dashboard.Init()
	}

	// Delegate to current screen
	var cmd tea.Cmd
	var m tea.Model
	switch a.screen {
	case ScreenDashboard:
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenActivities:
		m, cmd = a.activities.Update(msg)
		a.activities = m.(ActivitiesModel)
	case ScreenActivityDetail:
		m, cmd = a.activityDetail.Update(msg)
		a.activityDetail = m.(ActivityDetailModel)
	case ScreenStats:
		m, cmd = a.stats.Update(msg)
		a.stats = m.(StatsModel)
	case ScreenSync:
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenActivities:
		content = a.activities.View()
	case ScreenActivityDetail:
		content = a.activityDetail.View()
	case ScreenStats:
		content = a.stats.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("trainload  " + time.Now().Format("Mon Jan 2"))
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Activities", ScreenActivities},
		{"3", "Load", ScreenStats},
		{"4", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		active := a.screen == item.screen || (item.screen == ScreenActivities && a.screen == ScreenActivityDetail)
		if active {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// OpenActivityDetailMsg opens the detail screen for one activity
type OpenActivityDetailMsg struct {
	ActivityID int64
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct {
	Status string
}
