package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lgadye/warn-monitor/types"
)

// Summary describes one monitoring cycle.
type Summary struct {
	RunID        string                 `json:"run_id"`
	Target       string                 `json:"target"`
	Backend      string                 `json:"backend"`
	DocumentURL  string                 `json:"document_url,omitempty"`
	Fingerprint  string                 `json:"fingerprint,omitempty"`
	Changed      bool                   `json:"changed"`
	TotalRecords int                    `json:"total_records"`
	Matched      int                    `json:"matched"`
	AlreadySeen  int                    `json:"already_seen"`
	Skipped      int                    `json:"skipped"`
	Notified     bool                   `json:"notified"`
	NewNotices   []types.ObservedRecord `json:"new_notices"`
	StartedAt    time.Time              `json:"started_at"`
	Elapsed      time.Duration          `json:"elapsed_ns"`
}

// NewCount is the number of notices reported in this run.
func (s Summary) NewCount() int { return len(s.NewNotices) }

// Color palette
const (
	colorPrimary = "#7D56F4"
	colorSuccess = "#04B575"
	colorAlert   = "#FF5F87"
	colorInfo    = "#626262"
	colorBorder  = "#874BFD"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorPrimary))

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorInfo)).
		Width(16)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorSuccess))

	alertStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorAlert))

	boxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorBorder)).
		Padding(0, 2)
)

// Render formats the summary as a bordered block for the terminal.
func (s Summary) Render() string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}

	newValue := okStyle.Render("0")
	if s.NewCount() > 0 {
		newValue = alertStyle.Render(fmt.Sprintf("%d", s.NewCount()))
	}
	fp := s.Fingerprint
	if fp == "" {
		fp = "-"
	}

	lines := []string{
		titleStyle.Render("WARN Monitor Summary"),
		"",
		row("Run", s.RunID),
		row("Target", s.Target),
		row("State", s.Backend),
		row("Fingerprint", fp),
		row("Changed", fmt.Sprintf("%t", s.Changed)),
		row("Total rows", fmt.Sprintf("%d", s.TotalRecords)),
		row("Matched", fmt.Sprintf("%d", s.Matched)),
		row("New", newValue),
		row("Already seen", fmt.Sprintf("%d", s.AlreadySeen)),
		row("Skipped", fmt.Sprintf("%d", s.Skipped)),
		row("Elapsed", s.Elapsed.Round(time.Millisecond).String()),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
