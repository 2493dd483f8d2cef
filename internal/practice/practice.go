// Package practice judges played notes against a target and advances the
// practice sequence.
package practice

import (
	"time"

	"github.com/verte-zerg/fretiq/internal/generator"
	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/note"
)

// Config holds the judging parameters.
type Config struct {
	StableFrames        int
	ConfidenceThreshold float64
	StringQuota         int
	CelebrateDelay      time.Duration
	LowMIDI             int
	HighMIDI            int
}

// DefaultConfig returns the standard judging parameters.
func DefaultConfig() Config {
	return Config{
		StableFrames:        5,
		ConfidenceThreshold: 0.8,
		StringQuota:         2,
		CelebrateDelay:      500 * time.Millisecond,
		LowMIDI:             40,
		HighMIDI:            88,
	}
}

// State is the judging phase.
type State int

const (
	StateAwaiting State = iota
	StateHolding
	StateCelebrating
)

func (s State) String() string {
	switch s {
	case StateHolding:
		return "holding"
	case StateCelebrating:
		return "celebrating"
	default:
		return "awaiting"
	}
}

// Event is the outcome of one observation.
type Event int

const (
	EventNone Event = iota
	EventHold
	EventMiss
	EventCorrect
	EventStringAdvanced
)

func (e Event) String() string {
	switch e {
	case EventHold:
		return "hold"
	case EventMiss:
		return "miss"
	case EventCorrect:
		return "correct"
	case EventStringAdvanced:
		return "string-advanced"
	default:
		return "none"
	}
}

// Success reports whether the event completed a target.
func (e Event) Success() bool {
	return e == EventCorrect || e == EventStringAdvanced
}

// Machine is the practice state machine. It is not safe for concurrent use;
// the audio goroutine owns it.
type Machine struct {
	cfg   Config
	gen   *generator.Generator
	now   func() time.Time
	strat strategy

	state          State
	target         Target
	stable         int
	selectedString int
	hits           [12]int
	celebrateUntil time.Time
	lastMiss       int

	detected     string
	feedback     string
	feedbackKind model.FeedbackKind
	correct      int
	misses       int
}

// New returns a Machine awaiting its first observation with a fresh target.
// A nil clock uses time.Now.
func New(cfg Config, mode model.Mode, gen *generator.Generator, now func() time.Time) *Machine {
	if cfg.StableFrames < 1 {
		cfg.StableFrames = 1
	}
	if cfg.StringQuota < 1 {
		cfg.StringQuota = 1
	}
	if cfg.HighMIDI == 0 && cfg.LowMIDI == 0 {
		def := DefaultConfig()
		cfg.LowMIDI, cfg.HighMIDI = def.LowMIDI, def.HighMIDI
	}
	if gen == nil {
		gen = generator.New()
	}
	if now == nil {
		now = time.Now
	}
	m := &Machine{cfg: cfg, gen: gen, now: now}
	m.reset(mode)
	return m
}

// Observe judges one estimator result for a block that passed the signal gate.
func (m *Machine) Observe(obs model.Observation) Event {
	if m.celebrating() {
		return EventNone
	}
	if obs.Confidence < m.cfg.ConfidenceThreshold {
		m.breakHold()
		return EventNone
	}
	played, ok := note.FromFrequency(obs.Hz)
	if !ok {
		m.breakHold()
		return EventNone
	}
	m.detected = m.strat.played(played)

	if !m.strat.matches(played, m.target) {
		m.stable = 0
		m.state = StateAwaiting
		if played.MIDI != m.lastMiss {
			m.misses++
			m.lastMiss = played.MIDI
		}
		m.setFeedback(model.FeedbackIncorrect, "- Try again! You played "+m.detected+" instead of "+m.strat.name(m.target))
		return EventMiss
	}

	m.stable++
	m.state = StateHolding
	if m.stable < m.cfg.StableFrames {
		return EventHold
	}
	return m.succeed()
}

// Reject records a gated block. The hold is broken, and a wrong note played
// again after the silence counts as a new miss.
func (m *Machine) Reject() Event {
	if m.celebrating() {
		return EventNone
	}
	m.breakHold()
	m.lastMiss = note.NoNote
	return EventNone
}

// breakHold handles an accepted block without a usable note: low confidence
// or an unmappable frequency.
func (m *Machine) breakHold() {
	m.stable = 0
	m.state = StateAwaiting
}

// SetMode switches strategy and starts over with a new target.
func (m *Machine) SetMode(mode model.Mode) {
	m.reset(mode)
	m.setFeedback(model.FeedbackInfo, "Mode: "+mode.Title())
}

// Skip draws a new target without scoring the current one.
func (m *Machine) Skip() {
	skipped := m.strat.name(m.target)
	m.setTarget(m.strat.draw(m))
	m.stable = 0
	m.state = StateAwaiting
	m.setFeedback(model.FeedbackInfo, "Skipped "+skipped)
}

// SetTarget replaces the current target. In ByString mode the target's string
// becomes the selected string.
func (m *Machine) SetTarget(t Target) {
	if m.strat.mode() == model.ModeByString {
		t.MIDI = note.NoNote
		t.String = stringIndex(t.String)
		m.selectedString = t.String
	} else {
		t = NoteTarget(t.MIDI)
	}
	m.setTarget(t)
	m.stable = 0
	m.state = StateAwaiting
}

// Mode returns the active mode.
func (m *Machine) Mode() model.Mode { return m.strat.mode() }

// State returns the judging phase.
func (m *Machine) State() State { return m.state }

// Target returns the current target.
func (m *Machine) Target() Target { return m.target }

// StableFrames returns the number of consecutive matching observations.
func (m *Machine) StableFrames() int { return m.stable }

// SelectedString returns the StandardTuning index practised in ByString mode.
func (m *Machine) SelectedString() int { return m.selectedString }

// Hits returns the ByString hit count of a pitch class on the current string.
func (m *Machine) Hits(pc note.PitchClass) int { return m.hits[int(pc)%12] }

// Feedback returns the current feedback line and its kind.
func (m *Machine) Feedback() (string, model.FeedbackKind) { return m.feedback, m.feedbackKind }

// Score returns the session's correct and missed counts.
func (m *Machine) Score() (correct, misses int) { return m.correct, m.misses }

// Fill copies the display state into dst.
func (m *Machine) Fill(dst *model.Snapshot) {
	dst.Mode = m.strat.mode()
	dst.State = m.state.String()
	dst.TargetText = m.strat.describe(m.target)
	dst.TargetMIDI = m.target.MIDI
	dst.TargetClass = m.target.PitchClass.String()
	dst.Reference = m.target.Reference()
	dst.DetectedText = ""
	if m.detected != "" {
		dst.DetectedText = "You played: " + m.detected
	}
	dst.Feedback = m.feedback
	dst.FeedbackKind = m.feedbackKind
	dst.String = -1
	dst.StringName = ""
	if dst.Mode == model.ModeByString {
		dst.String = m.selectedString
		dst.StringName = StandardTuning[m.selectedString].Name
	}
	dst.Hits = m.hits
	dst.StableFrames = m.stable
	dst.Correct = m.correct
	dst.Misses = m.misses
}

func (m *Machine) succeed() Event {
	m.correct++
	m.setFeedback(model.FeedbackCorrect, "+ Correct! You played "+m.detected)
	next, ev := m.strat.advance(m)
	m.setTarget(next)
	m.stable = 0
	if m.cfg.CelebrateDelay > 0 {
		m.state = StateCelebrating
		m.celebrateUntil = m.now().Add(m.cfg.CelebrateDelay)
	} else {
		m.state = StateAwaiting
	}
	return ev
}

// celebrating reports whether observations are still being ignored after a
// success, moving back to StateAwaiting once the delay has passed.
func (m *Machine) celebrating() bool {
	if m.state != StateCelebrating {
		return false
	}
	if m.now().Before(m.celebrateUntil) {
		return true
	}
	m.state = StateAwaiting
	return false
}

func (m *Machine) reset(mode model.Mode) {
	m.strat = strategyFor(mode)
	m.state = StateAwaiting
	m.stable = 0
	m.selectedString = 0
	m.hits = [12]int{}
	m.detected = ""
	m.setTarget(m.strat.draw(m))
}

func (m *Machine) setTarget(t Target) {
	m.target = t
	m.lastMiss = note.NoNote
}

func (m *Machine) setFeedback(kind model.FeedbackKind, text string) {
	m.feedbackKind = kind
	m.feedback = text
}
