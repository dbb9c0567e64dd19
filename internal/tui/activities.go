package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/service"
)

// ActivitiesModel is the activities list screen model
type ActivitiesModel struct {
	loads      LoadReader
	units      Units
	activities []service.ActivitySummary
	cursor     int
	offset     int
	total      int
	pageSize   int
	loading    bool
	err        error
}

// NewActivitiesModel creates a new activities model
func NewActivitiesModel(loads LoadReader, units Units) ActivitiesModel {
	return ActivitiesModel{
		loads:    loads,
		units:    units,
		pageSize: 15,
		loading:  true,
	}
}

// Init initializes the activities screen
func (m ActivitiesModel) Init() tea.Cmd {
	return m.loadPage
}

type activitiesLoadedMsg struct {
	page *service.ActivityPage
	err  error
}

func (m ActivitiesModel) loadPage() tea.Msg {
	page, err := m.loads.Activities(m.pageSize, m.offset)
	return activitiesLoadedMsg{page: page, err: err}
}

// Update handles messages
func (m ActivitiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activitiesLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.page != nil {
			m.activities = msg.page.Activities
			m.total = msg.page.Total
		}
		if m.cursor >= len(m.activities) {
			m.cursor = max(len(m.activities)-1, 0)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				// Go to previous page
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
				m.loading = true
				return m, m.loadPage
			}
		case "down", "j":
			if m.cursor < len(m.activities)-1 {
				m.cursor++
			} else if m.offset+len(m.activities) < m.total {
				// Go to next page
				m.offset += m.pageSize
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "pgup":
			if m.offset > 0 {
				m.offset = max(m.offset-m.pageSize, 0)
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "pgdown":
			if m.offset+m.pageSize < m.total {
				m.offset += m.pageSize
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "r":
			m.loading = true
			return m, m.loadPage
		case "enter":
			if m.cursor < len(m.activities) {
				activityID := m.activities[m.cursor].ID
				return m, func() tea.Msg {
					return OpenActivityDetailMsg{ActivityID: activityID}
				}
			}
		}
	}
	return m, nil
}

// View renders the activities list
func (m ActivitiesModel) View() string {
	if m.loading {
		return "\n  Loading activities..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.activities) == 0 {
		return "\n  No activities found. Press 's' to sync or run `trainload import <file.fit>`."
	}

	var sections []string

	startNum := m.offset + 1
	endNum := m.offset + len(m.activities)
	title := cardTitleStyle.Render(fmt.Sprintf("Activities (%d-%d of %d)", startNum, endNum, m.total))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-10s  %-24s  %-12s  %8s  %9s  %5s  %-9s  %4s",
		"Date", "Name", "Sport", "Duration", "Distance", "TSS", "Tier", "IF"))
	sections = append(sections, header)

	for i, a := range m.activities {
		date := a.StartDateLocal
		if t, ok := parseLocal(a.StartDateLocal); ok {
			date = t.Format("Jan 02")
		}

		tier := "-"
		if a.Tier != nil {
			tier = *a.Tier
		}

		intensity := "-"
		if a.IntensityFactor != nil {
			intensity = fmt.Sprintf("%.2f", *a.IntensityFactor)
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-10s  %-24s  %-12s  %8s  %9s  %5s  %-9s  %4s",
			cursor,
			date,
			truncateName(a.Name, 24),
			truncateName(a.SportType, 12),
			a.Duration,
			m.units.FormatDistance(a.Distance),
			formatTSS(a.TSS),
			tier,
			intensity,
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  enter: view details  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
