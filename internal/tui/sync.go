package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/service"
)

// SyncModel is the sync screen model
type SyncModel struct {
	syncer   Syncer
	progress chan service.SyncProgress
	current  service.SyncProgress
	syncing  bool
	result   *service.SyncResult
	err      error
	done     bool
}

// NewSyncModel creates a new sync model
func NewSyncModel(syncer Syncer) SyncModel {
	return SyncModel{
		syncer: syncer,
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

type syncProgressMsg struct {
	progress service.SyncProgress
	ok       bool
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case syncProgressMsg:
		if !msg.ok {
			return m, nil
		}
		m.current = msg.progress
		return m, waitForProgress(m.progress)

	case SyncDoneMsg:
		m.syncing = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		status := "Sync failed"
		if msg.Err == nil && msg.Result != nil {
			status = fmt.Sprintf("Synced %d activities, scored %d", msg.Result.ActivitiesStored, msg.Result.ActivitiesScored)
		}
		return m, func() tea.Msg { return SyncCompleteMsg{Status: status} }

	case tea.KeyMsg:
		if !m.syncing {
			switch msg.String() {
			case "enter", "s":
				m.syncing = true
				m.done = false
				m.err = nil
				m.result = nil
				m.current = service.SyncProgress{}
				m.progress = make(chan service.SyncProgress, 16)
				return m, tea.Batch(m.runSync(m.progress), waitForProgress(m.progress))
			}
		}
	}
	return m, nil
}

func (m SyncModel) runSync(progress chan service.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		result, err := m.syncer.SyncAll(context.Background(), progress)
		return SyncDoneMsg{Result: result, Err: err}
	}
}

// waitForProgress delivers the next progress update; SyncAll closes the channel
func waitForProgress(progress chan service.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-progress
		return syncProgressMsg{progress: p, ok: ok}
	}
}

// View renders the sync screen
func (m SyncModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Strava Sync")
	sections = append(sections, title)

	if m.err != nil {
		msg := fmt.Sprintf("\n  Error: %v", m.err)
		if errors.Is(m.err, service.ErrNoProvider) {
			msg = "\n  Strava is not connected. Set strava.client_id and strava.client_secret in ~/.trainload/config.json and restart."
		}
		sections = append(sections, errorStyle.Render(msg))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.done && !m.syncing {
		sections = append(sections, successStyle.Render("\n  Sync complete!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to go to dashboard"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.syncing {
		sections = append(sections, m.renderProgress())
	} else {
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	lines := []string{
		"",
		"  This will sync your Strava activities:",
		"",
		"  1. Fetch new activities",
		"  2. Download heart rate and power streams",
		"  3. Score training stress",
		"  4. Rebuild the load history",
		"",
	}

	short, daily := m.syncer.RateLimitStatus()
	lines = append(lines, statusStyle.Render(fmt.Sprintf("  API requests left: %d (15min), %d (daily)", short, daily)))
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  Press 's' or Enter to start sync"))

	return strings.Join(lines, "\n")
}

var syncPhases = []struct {
	phase string
	label string
}{
	{service.PhaseActivities, "Fetching new activities"},
	{service.PhaseStreams, "Downloading streams"},
	{service.PhaseScoring, "Scoring activities"},
	{service.PhaseSnapshots, "Rebuilding load history"},
}

func (m SyncModel) renderProgress() string {
	lines := []string{"", "  Syncing with Strava...", ""}

	active := -1
	for i, p := range syncPhases {
		if p.phase == m.current.Phase {
			active = i
		}
	}

	for i, p := range syncPhases {
		marker := "  "
		style := mutedStyle
		switch {
		case i < active:
			marker, style = "✓ ", successStyle
		case i == active:
			marker, style = "▶ ", metricValueStyle
		}
		lines = append(lines, "  "+style.Render(marker+p.label))
	}

	if m.current.Total > 0 {
		pct := float64(m.current.Completed) / float64(m.current.Total)
		lines = append(lines, "", fmt.Sprintf("  %s %d/%d", RenderProgressBar(pct, 30), m.current.Completed, m.current.Total))
	}
	if m.current.CurrentActivity != "" {
		lines = append(lines, statusStyle.Render("  "+truncateName(m.current.CurrentActivity, 50)))
	}

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	if m.result == nil {
		return ""
	}

	r := m.result
	lines := []string{""}

	if r.ActivitiesStored > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities synced", r.ActivitiesStored)))
	} else {
		lines = append(lines, statusStyle.Render("  No new activities"))
	}

	if r.StreamsFetched > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d streams downloaded", r.StreamsFetched)))
	}

	if r.ActivitiesScored > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities scored", r.ActivitiesScored)))
	}

	if r.SnapshotDays > 0 {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  %d days of load history", r.SnapshotDays)))
	}

	if len(r.Errors) > 0 {
		lines = append(lines, "")
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d errors occurred", len(r.Errors))))
	}

	return strings.Join(lines, "\n")
}
