// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/note"
	statsPkg "github.com/verte-zerg/fretiq/internal/stats"
)

const (
	refreshInterval = 100 * time.Millisecond
	levelHistory    = 48
	// Full scale of the level meter; guitar DI peaks well below 0.5 RMS.
	levelScale = 0.3
)

// Engine is the part of the audio engine the UI talks to.
type Engine interface {
	Snapshot() *model.Snapshot
	ToggleMode()
	RequestSkip()
}

type refreshMsg time.Time

// Model implements the Bubble Tea practice UI. It only reads published
// snapshots; requests go back to the engine through its atomic slots.
type Model struct {
	engine Engine
	snap   *model.Snapshot

	width  int
	height int

	levels    []float64
	lastSeq   uint64
	hitTable  table.Model
	lastTable string
}

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	targetStyle    = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
)

// NewModel constructs the practice UI around a running engine.
func NewModel(engine Engine) *Model {
	m := &Model{
		engine:   engine,
		snap:     engine.Snapshot(),
		hitTable: buildHitTable(),
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return refresh()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case refreshMsg:
		m.pull()
		return m, refresh()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "m":
			m.engine.ToggleMode()
		case "s":
			m.engine.RequestSkip()
		}
		return m, nil
	default:
		return m, nil
	}
}

// pull copies in the latest snapshot and records its level once.
func (m *Model) pull() {
	snap := m.engine.Snapshot()
	if snap == nil {
		return
	}
	m.snap = snap
	if snap.Seq == m.lastSeq {
		return
	}
	m.lastSeq = snap.Seq
	m.levels = append(m.levels, snap.Level.RMS)
	if len(m.levels) > levelHistory {
		m.levels = m.levels[len(m.levels)-levelHistory:]
	}
	if snap.Mode == model.ModeByString {
		m.updateHitTable(snap)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	s := m.snap
	if s == nil {
		return ""
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 20 {
		contentWidth = 20
	}

	lines := []string{infoStyle.Render(m.renderHeader())}
	if s.Unavailable {
		lines = append(lines, errorStyle.Render("Pitch detection unavailable"))
	}
	lines = append(lines, "", targetStyle.Render(s.TargetText), "")
	lines = append(lines, m.renderDetected())
	if feedback := m.renderFeedback(contentWidth); feedback != "" {
		lines = append(lines, feedback)
	}
	lines = append(lines, "", pendingStyle.Render("Level "+statsPkg.Sparkline(m.levels, 0, levelScale)))
	if s.Mode == model.ModeByString {
		lines = append(lines, "", m.hitTable.View())
	}
	content := lipgloss.NewStyle().Width(contentWidth).Render(strings.Join(lines, "\n"))

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderHeader() string {
	s := m.snap
	header := "Mode: " + s.Mode.Title()
	if s.Mode == model.ModeByString && s.String >= 0 {
		header += fmt.Sprintf(" · String %d (%s)", 6-s.String, s.StringName)
	}
	return header
}

func (m *Model) renderDetected() string {
	s := m.snap
	if s.DetectedText == "" {
		return pendingStyle.Render("Play a note…")
	}
	text := s.DetectedText
	if s.Detected.Hz > 0 {
		if midi, ok := note.FrequencyToMIDI(s.Detected.Hz); ok {
			text += fmt.Sprintf("  %.1f Hz  %+.0f¢", s.Detected.Hz, note.Cents(s.Detected.Hz, midi))
		}
	}
	return text
}

func (m *Model) renderFeedback(width int) string {
	s := m.snap
	if s.Feedback == "" {
		return ""
	}
	style := infoStyle
	switch s.FeedbackKind {
	case model.FeedbackCorrect:
		style = correctStyle
	case model.FeedbackIncorrect:
		style = incorrectStyle
	}
	return wrapStyledRunes(buildStyledRunes(s.Feedback, style), width)
}

func (m *Model) renderFooter() string {
	s := m.snap
	if s == nil {
		return ""
	}
	elapsed := time.Duration(0)
	if !s.StartedAt.IsZero() {
		elapsed = time.Since(s.StartedAt)
	}
	perMinute, acc := statsPkg.SessionMetrics(s.Correct, s.Misses, elapsed)
	segments := []string{
		fmt.Sprintf("Correct %d", s.Correct),
		fmt.Sprintf("Misses %d", s.Misses),
		fmt.Sprintf("Accuracy %.1f%%", acc*100),
		fmt.Sprintf("%.1f/min", perMinute),
		"m mode · s skip · q quit",
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func buildHitTable() table.Model {
	columns := []table.Column{
		{Title: "Note", Width: 4},
		{Title: "Hits", Width: 4},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
		table.WithFocused(false),
	)
	t.SetStyles(hitTableStyles())
	return t
}

// updateHitTable lists pitch classes with hits on the current string.
func (m *Model) updateHitTable(s *model.Snapshot) {
	rows := make([]table.Row, 0, len(s.Hits))
	var key strings.Builder
	for _, pc := range note.PitchClasses() {
		hits := s.Hits[pc]
		if hits == 0 {
			continue
		}
		rows = append(rows, table.Row{pc.String(), fmt.Sprintf("%d", hits)})
		fmt.Fprintf(&key, "%d:%d,", pc, hits)
	}
	if key.String() == m.lastTable {
		return
	}
	m.lastTable = key.String()
	m.hitTable.SetRows(rows)
}

func hitTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell
	return styles
}
