package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/service"
)

const (
	weeklyHistoryDays  = 364
	monthlyHistoryDays = 730
)

// periodLoad is the training load summary of one week or month
type periodLoad struct {
	Label      string
	Start      time.Time
	TotalTSS   float64
	ActiveDays int
	CTL        float64 // at period end
	ATL        float64
	TSB        float64
	Ramp       float64 // CTL change over the period
}

// StatsModel is the weekly/monthly load screen model
type StatsModel struct {
	loads      LoadReader
	periods    []periodLoad
	periodType string // "weekly" or "monthly"
	loading    bool
	err        error
	cursor     int
	offset     int
	pageSize   int
	total      int
}

// NewStatsModel creates a new stats model
func NewStatsModel(loads LoadReader) StatsModel {
	return StatsModel{
		loads:      loads,
		periodType: "weekly",
		loading:    true,
		pageSize:   15,
	}
}

// Init initializes the stats screen
func (m StatsModel) Init() tea.Cmd {
	return m.loadStats
}

type statsLoadedMsg struct {
	periods []periodLoad
	err     error
}

func (m StatsModel) loadStats() tea.Msg {
	monthly := m.periodType == "monthly"
	days := weeklyHistoryDays
	if monthly {
		days = monthlyHistoryDays
	}

	points, err := m.loads.Timeline(days)
	if err != nil {
		return statsLoadedMsg{err: err}
	}
	return statsLoadedMsg{periods: aggregatePeriods(points, monthly)}
}

// aggregatePeriods groups daily points into calendar weeks (Monday start) or
// months, most recent first. Periods without training are dropped.
func aggregatePeriods(points []service.TimelinePoint, monthly bool) []periodLoad {
	var periods []periodLoad
	var startCTL float64

	for _, p := range points {
		day, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}

		start := periodStart(day, monthly)
		if len(periods) == 0 || !periods[len(periods)-1].Start.Equal(start) {
			startCTL = p.CTL
			if len(periods) > 0 {
				startCTL = periods[len(periods)-1].CTL
			}
			periods = append(periods, periodLoad{Label: periodLabel(start, monthly), Start: start})
		}

		cur := &periods[len(periods)-1]
		cur.TotalTSS += p.TSS
		if p.TSS > 0 {
			cur.ActiveDays++
		}
		cur.CTL, cur.ATL, cur.TSB = p.CTL, p.ATL, p.TSB
		cur.Ramp = p.CTL - startCTL
	}

	var out []periodLoad
	for i := len(periods) - 1; i >= 0; i-- {
		if periods[i].ActiveDays > 0 {
			out = append(out, periods[i])
		}
	}
	return out
}

func periodStart(day time.Time, monthly bool) time.Time {
	if monthly {
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func periodLabel(start time.Time, monthly bool) string {
	if monthly {
		return start.Format("Jan 2006")
	}
	return start.Format("Jan 02 2006")
}

// Update handles messages
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.periods = msg.periods
		m.total = len(msg.periods)
		m.cursor = 0
		m.offset = 0

	case tea.KeyMsg:
		switch msg.String() {
		case "w":
			if m.periodType != "weekly" {
				m.periodType = "weekly"
				m.loading = true
				return m, m.loadStats
			}
		case "m":
			if m.periodType != "monthly" {
				m.periodType = "monthly"
				m.loading = true
				return m, m.loadStats
			}
		case "r":
			m.loading = true
			return m, m.loadStats
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
			}
		case "down", "j":
			visibleCount := m.getVisibleCount()
			if m.cursor < visibleCount-1 {
				m.cursor++
			} else if m.offset+visibleCount < m.total {
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "pgup":
			if m.offset > 0 {
				m.offset = max(m.offset-m.pageSize, 0)
				m.cursor = 0
			}
		case "pgdown":
			if m.offset+m.pageSize < m.total {
				m.offset += m.pageSize
				m.cursor = 0
			}
		}
	}
	return m, nil
}

func (m StatsModel) getVisibleCount() int {
	return min(m.total-m.offset, m.pageSize)
}

// View renders the stats screen
func (m StatsModel) View() string {
	if m.loading {
		return "\n  Loading load history..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	var sections []string

	periodLabel := "Weekly"
	if m.periodType == "monthly" {
		periodLabel = "Monthly"
	}

	if m.total == 0 {
		sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("Training Load (%s)", periodLabel)))
		sections = append(sections, "\n  No data available. Sync some activities first.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	startNum := m.offset + 1
	endNum := m.offset + m.getVisibleCount()

	title := cardTitleStyle.Render(fmt.Sprintf("Training Load (%s) - %d-%d of %d", periodLabel, startNum, endNum, m.total))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-12s  %6s  %4s  %6s  %6s  %6s  %6s",
		"Period", "TSS", "Days", "CTL", "ATL", "TSB", "Ramp"))
	sections = append(sections, header)

	endIdx := min(m.offset+m.pageSize, len(m.periods))
	for i := m.offset; i < endIdx; i++ {
		p := m.periods[i]

		cursor := "  "
		if i-m.offset == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-12s  %6.0f  %4d  %6.1f  %6.1f  %+6.1f  %+6.1f",
			cursor, p.Label, p.TotalTSS, p.ActiveDays, p.CTL, p.ATL, p.TSB, p.Ramp)

		if i-m.offset == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  w/m: weekly/monthly  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
