package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"trainload/internal/service"
)

const chartPoints = 60

// ActivityDetailModel is the activity detail screen model
type ActivityDetailModel struct {
	loads      LoadReader
	units      Units
	activityID int64
	detail     *service.ActivityDetail
	viewport   viewport.Model
	loading    bool
	err        error
	width      int
	height     int
	ready      bool
}

// NewActivityDetailModel creates a new activity detail model
func NewActivityDetailModel(loads LoadReader, units Units, activityID int64, width, height int) ActivityDetailModel {
	m := ActivityDetailModel{
		loads:      loads,
		units:      units,
		activityID: activityID,
		loading:    true,
		width:      width,
		height:     height,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// Init initializes the activity detail screen
func (m ActivityDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type activityDetailLoadedMsg struct {
	detail *service.ActivityDetail
	err    error
}

func (m ActivityDetailModel) loadDetail() tea.Msg {
	detail, err := m.loads.ActivityDetail(m.activityID)
	return activityDetailLoadedMsg{detail: detail, err: err}
}

// Update handles messages
func (m ActivityDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDetailLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.detail = msg.detail
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.detail != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadDetail
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the activity detail screen
func (m ActivityDetailModel) View() string {
	if m.loading {
		return "\n  Loading activity details..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  esc: back to list  j/k or arrows: scroll  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m ActivityDetailModel) renderContent() string {
	if m.detail == nil {
		return "No data"
	}

	sections := []string{m.renderHeader(), m.renderScore(), m.renderSensors()}

	if hr := chartSeries(m.detail.HRByMinute); len(hr) > 2 {
		sections = append(sections, renderChart("Heart Rate by Minute (bpm)", hr))
	}
	if power := chartSeries(m.detail.PowerByMinute); len(power) > 2 {
		sections = append(sections, renderChart("Power by Minute (W)", power))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ActivityDetailModel) renderHeader() string {
	a := m.detail.ActivitySummary
	title := cardTitleStyle.Render(a.Name)

	date := a.StartDateLocal
	if t, ok := parseLocal(a.StartDateLocal); ok {
		date = t.Format("Monday, January 2, 2006 at 3:04 PM")
	}
	subtitle := mutedStyle.Render(fmt.Sprintf("%s  •  %s (%s)", date, a.SportType, a.Source))

	stats := []string{a.Duration}
	if a.Distance > 0 {
		stats = append(stats, m.units.FormatDistance(a.Distance))
		if a.Modality == "run" || a.Modality == "swim" {
			stats = append(stats, m.units.FormatPaceWithUnit(a.MovingTime, a.Distance))
		}
	}
	statsLine := lipgloss.NewStyle().Foreground(textColor).Bold(true).Render(strings.Join(stats, "  •  "))

	return lipgloss.JoinVertical(lipgloss.Left, "", title, subtitle, statsLine, "")
}

func (m ActivityDetailModel) renderScore() string {
	a := m.detail.ActivitySummary
	lines := []string{sectionStyle.Render("Training Stress")}

	if a.TSS == nil {
		lines = append(lines, mutedStyle.Render("  Not scored yet. Sync or restart to score."), "")
		return strings.Join(lines, "\n")
	}

	tier := "-"
	if a.Tier != nil {
		tier = *a.Tier
	}
	lines = append(lines,
		fmt.Sprintf("  TSS:                  %.0f", *a.TSS),
		fmt.Sprintf("  Method:               %s", tier),
	)
	if a.IntensityFactor != nil {
		lines = append(lines, fmt.Sprintf("  Intensity Factor:     %.2f", *a.IntensityFactor))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderSensors() string {
	d := m.detail
	lines := []string{sectionStyle.Render("Sensors")}

	add := func(label, format string, v *float64) {
		if v != nil && *v > 0 {
			lines = append(lines, fmt.Sprintf("  %-22s"+format, label+":", *v))
		}
	}
	add("Average HR", "%.0f bpm", d.AvgHeartRate)
	add("Max HR", "%.0f bpm", d.MaxHeartRate)
	add("Normalized HR", "%.0f bpm", d.NormalizedHR)
	add("Average Power", "%.0f W", d.AvgPower)
	add("Weighted Power", "%.0f W", d.WeightedPower)
	add("Normalized Power", "%.0f W", d.NormalizedPower)
	if d.PerceivedEffort != nil {
		lines = append(lines, fmt.Sprintf("  %-22s%d/10", "Perceived Effort:", *d.PerceivedEffort))
	}

	if len(lines) == 1 {
		lines = append(lines, mutedStyle.Render("  No sensor data"))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func renderChart(title string, data []float64) string {
	chart := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(50),
	)
	return strings.Join([]string{sectionStyle.Render(title), chart, ""}, "\n")
}

// chartSeries downsamples a per-minute series and trims empty trailing minutes
func chartSeries(data []float64) []float64 {
	return trimTrailingZeros(downsample(data, chartPoints))
}

func downsample(data []float64, targetLen int) []float64 {
	if len(data) <= targetLen {
		return data
	}

	result := make([]float64, targetLen)
	ratio := float64(len(data)) / float64(targetLen)

	for i := 0; i < targetLen; i++ {
		start := int(float64(i) * ratio)
		end := int(float64(i+1) * ratio)
		if end > len(data) {
			end = len(data)
		}

		sum := 0.0
		count := 0
		for j := start; j < end; j++ {
			if data[j] > 0 {
				sum += data[j]
				count++
			}
		}
		if count > 0 {
			result[i] = sum / float64(count)
		}
	}

	return result
}

func trimTrailingZeros(data []float64) []float64 {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return data[:end]
}
