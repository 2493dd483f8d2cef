// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how played notes are judged and how targets progress.
type Mode int

const (
	// ModeFullFretboard judges exact MIDI notes in any octave.
	ModeFullFretboard Mode = iota
	// ModeByString judges pitch classes and walks through the strings.
	ModeByString
)

// String returns the config/flag spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeByString:
		return "by-string"
	default:
		return "full-fretboard"
	}
}

// Title returns the display name of the mode.
func (m Mode) Title() string {
	switch m {
	case ModeByString:
		return "By String"
	default:
		return "Full Fretboard"
	}
}

// ParseMode accepts the flag spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full-fretboard", "full", "fretboard":
		return ModeFullFretboard, nil
	case "by-string", "string", "bystring":
		return ModeByString, nil
	}
	return ModeFullFretboard, fmt.Errorf("unknown mode %q (available: full-fretboard, by-string)", s)
}

// Config defines practice and audio settings.
type Config struct {
	Mode                Mode
	SampleRate          int
	BlockSize           int
	WindowSize          int
	BufferSize          int
	Tolerance           float64
	RMSThreshold        float64
	ConfidenceThreshold float64
	StableFrames        int
	StringQuota         int
	CelebrateDelay      time.Duration
	MIDIOut             string
}

// Observation is one estimator result for an analysed block.
type Observation struct {
	Hz         float64
	Confidence float64
}

// Level holds the signal measurements of a block.
type Level struct {
	Peak float64
	RMS  float64
}

// FeedbackKind classifies the feedback line for coloring.
type FeedbackKind int

const (
	FeedbackNone FeedbackKind = iota
	FeedbackCorrect
	FeedbackIncorrect
	FeedbackInfo
)

// Snapshot is an immutable, display-ready view of the practice state.
// A new value is published after every processed block; readers must not modify it.
type Snapshot struct {
	Seq         uint64
	Mode        Mode
	State       string
	TargetText  string
	TargetMIDI  int
	TargetClass string
	// Reference is a MIDI note that sounds the target.
	Reference    int
	DetectedText string
	Detected     Observation
	Level        Level
	Feedback     string
	FeedbackKind FeedbackKind
	String       int
	StringName   string
	Hits         [12]int
	StableFrames int
	Correct      int
	Misses       int
	Unavailable  bool
	StartedAt    time.Time
}
