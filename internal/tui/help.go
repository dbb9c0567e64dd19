package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type keyHelp struct {
	key  string
	desc string
}

type helpSection struct {
	title string
	keys  []keyHelp
}

var keySections = []helpSection{
	{"Navigation", []keyHelp{
		{"1", "Dashboard"},
		{"2", "Activities list"},
		{"3", "Weekly / monthly load"},
		{"4 or s", "Sync screen"},
		{"?", "This help"},
		{"esc", "Back / close help"},
		{"q", "Quit"},
	}},
	{"Dashboard", []keyHelp{{"r", "Refresh"}}},
	{"Activities", []keyHelp{
		{"j / k", "Move cursor"},
		{"pgdn / pgup", "Next / previous page"},
		{"enter", "Activity detail"},
		{"r", "Refresh"},
	}},
	{"Load", []keyHelp{{"w / m", "Weekly or monthly periods"}}},
	{"Sync", []keyHelp{{"s / enter", "Start sync"}}},
}

var metricHelp = []keyHelp{
	{"TSS (Training Stress Score)", "Load of one session. 100 = one hour at threshold."},
	{"IF (Intensity Factor)", "Session intensity relative to threshold."},
	{"CTL (Fitness)", "Chronic training load: 42-day weighted average of daily TSS."},
	{"ATL (Fatigue)", "Acute training load: 7-day weighted average of daily TSS."},
	{"TSB (Form)", "Yesterday's CTL minus ATL. Positive = fresh, -30 or below = exhausted."},
	{"Recovery", "Wearable score 0-100. Green from 67, yellow from 34, red below."},
}

// HelpModel is the static help screen
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

func (m HelpModel) Init() tea.Cmd {
	return nil
}

func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m HelpModel) View() string {
	lines := []string{cardTitleStyle.Render("Keyboard Shortcuts")}

	for _, s := range keySections {
		lines = append(lines, "", sectionStyle.Render(s.title))
		for _, k := range s.keys {
			lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
		}
	}

	lines = append(lines, "", sectionStyle.Render("Metrics Explained"), "")
	for _, k := range metricHelp {
		lines = append(lines, "  "+helpKeyStyle.Render(k.key), "  "+mutedStyle.Render(k.desc), "")
	}

	return strings.Join(lines, "\n")
}
