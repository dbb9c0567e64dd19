package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"trainload/internal/service"
)

const recentActivities = 5

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	loads      LoadReader
	units      Units
	windowDays int
	width      int

	state    *service.CurrentState
	timeline []service.TimelinePoint
	recent   []service.ActivitySummary
	loading  bool
	err      error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(loads LoadReader, units Units, windowDays, width int) DashboardModel {
	return DashboardModel{
		loads:      loads,
		units:      units,
		windowDays: windowDays,
		width:      width,
		loading:    true,
	}
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

type dashboardDataMsg struct {
	state    *service.CurrentState
	timeline []service.TimelinePoint
	recent   []service.ActivitySummary
	err      error
}

func (m DashboardModel) loadData() tea.Msg {
	state, err := m.loads.Current()
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	timeline, err := m.loads.Timeline(m.windowDays)
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	page, err := m.loads.Activities(recentActivities, 0)
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	return dashboardDataMsg{state: state, timeline: timeline, recent: page.Activities}
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.state = msg.state
		m.timeline = msg.timeline
		m.recent = msg.recent
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadData
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading {
		return "\n  Loading dashboard..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.state == nil {
		return "\n  No data available. Press 's' to sync."
	}

	var sections []string

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderLoadCard(), "  ", m.renderRecoveryCard())
	sections = append(sections, topRow)

	if len(m.state.Alerts) > 0 {
		sections = append(sections, m.renderAlerts())
	}

	if len(m.timeline) > 2 {
		sections = append(sections, m.renderChart())
	}

	sections = append(sections, m.renderRecentActivities())

	help := statusStyle.Render("Press 'r' to refresh, 's' to sync, '2' for activities list")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderLoadCard() string {
	title := cardTitleStyle.Render("Training Load")
	s := m.state

	lines := []string{
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.1f", s.CTL)),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.1f", s.ATL)),
		RenderMetric("Form (TSB)", fmt.Sprintf("%+.1f", s.TSB)),
		"",
		formStyle(s.Form.Level).Bold(true).Render(s.Form.Label),
		mutedStyle.Width(34).Render(s.Form.Advice),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderRecoveryCard() string {
	title := cardTitleStyle.Render("Recovery")

	rec := m.state.Recovery
	if rec == nil {
		body := mutedStyle.Width(28).Render("No recovery score recorded. Use `trainload recovery <0-100>`.")
		return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
	}

	asOf := "today"
	if rec.Date != m.state.Date {
		asOf = relativeDate(rec.Date + "T00:00:00")
	}

	cleared := "not cleared"
	if rec.Cleared {
		cleared = "cleared"
	}

	lines := []string{
		RenderMetric("Score", fmt.Sprintf("%.0f", rec.Score)),
		RenderMetric("Recorded", asOf),
		"",
		recoveryStyle(rec.Zone).Bold(true).Render(rec.Label + " (" + cleared + ")"),
		mutedStyle.Width(28).Render(rec.Advice),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderAlerts() string {
	title := cardTitleStyle.Render("Alerts")

	lines := []string{title}
	for _, a := range m.state.Alerts {
		lines = append(lines, severityStyle(a.Severity).Render("• "+a.Message))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m DashboardModel) renderChart() string {
	title := cardTitleStyle.Render(fmt.Sprintf("Load - last %d days", len(m.timeline)))

	ctl, atl, tsb := loadSeries(m.timeline)
	graph := asciigraph.PlotMany([][]float64{ctl, atl, tsb},
		asciigraph.Height(10),
		asciigraph.Width(m.chartWidth()),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red, asciigraph.Green),
		asciigraph.Caption("CTL blue  ATL red  TSB green"),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m DashboardModel) chartWidth() int {
	w := m.width - 16
	if w < 40 {
		return 60
	}
	if w > 120 {
		return 120
	}
	return w
}

// loadSeries splits a timeline into CTL, ATL and TSB series
func loadSeries(points []service.TimelinePoint) (ctl, atl, tsb []float64) {
	ctl = make([]float64, len(points))
	atl = make([]float64, len(points))
	tsb = make([]float64, len(points))
	for i, p := range points {
		ctl[i], atl[i], tsb[i] = p.CTL, p.ATL, p.TSB
	}
	return ctl, atl, tsb
}

func (m DashboardModel) renderRecentActivities() string {
	title := cardTitleStyle.Render("Recent Activities")

	if len(m.recent) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "No activities yet"))
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-14s  %-22s  %-10s  %8s  %5s",
		"When", "Name", "Sport", "Duration", "TSS"))

	rows := []string{header}
	for _, a := range m.recent {
		row := tableRowStyle.Render(fmt.Sprintf("%-14s  %-22s  %-10s  %8s  %5s",
			relativeDate(a.StartDateLocal),
			truncateName(a.Name, 22),
			truncateName(a.SportType, 10),
			a.Duration,
			formatTSS(a.TSS),
		))
		rows = append(rows, row)
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}

const localLayout = "2006-01-02T15:04:05"

func parseLocal(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(localLayout, s, time.Local)
	return t, err == nil
}

func relativeDate(s string) string {
	t, ok := parseLocal(s)
	if !ok {
		return s
	}
	return humanize.Time(t)
}

func formatTSS(tss *float64) string {
	if tss == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *tss)
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
