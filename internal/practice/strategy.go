package practice

import (
	"fmt"

	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/note"
)

// GuitarString describes one string of the instrument.
type GuitarString struct {
	Number int // Conventional string number, 6 = low E.
	Name   string
	Open   int // MIDI note of the open string.
}

// StandardTuning lists the strings in ByString practice order, low to high.
var StandardTuning = [...]GuitarString{
	{Number: 6, Name: "low E", Open: 40},
	{Number: 5, Name: "A", Open: 45},
	{Number: 4, Name: "D", Open: 50},
	{Number: 3, Name: "G", Open: 55},
	{Number: 2, Name: "B", Open: 59},
	{Number: 1, Name: "high E", Open: 64},
}

// Target is the note the player is asked to play.
type Target struct {
	MIDI       int // note.NoNote when only the pitch class matters.
	PitchClass note.PitchClass
	String     int // Index into StandardTuning, -1 when not string-bound.
}

// NoteTarget returns a FullFretboard target.
func NoteTarget(midi int) Target {
	return Target{MIDI: midi, PitchClass: note.PitchClassOf(midi), String: -1}
}

// ClassTarget returns a ByString target on the string at index str.
func ClassTarget(pc note.PitchClass, str int) Target {
	return Target{MIDI: note.NoNote, PitchClass: pc, String: str}
}

// Reference returns a MIDI note that sounds the target: the note itself, or
// the lowest fretted position of the pitch class on its string.
func (t Target) Reference() int {
	if t.MIDI != note.NoNote {
		return t.MIDI
	}
	open := StandardTuning[stringIndex(t.String)].Open
	offset := (int(t.PitchClass) - open) % 12
	if offset < 0 {
		offset += 12
	}
	return open + offset
}

// strategy holds everything that differs between practice modes.
type strategy interface {
	mode() model.Mode
	matches(played note.Note, target Target) bool
	draw(m *Machine) Target
	advance(m *Machine) (Target, Event)
	name(t Target) string
	describe(t Target) string
	played(n note.Note) string
}

func strategyFor(mode model.Mode) strategy {
	if mode == model.ModeByString {
		return byString{}
	}
	return fullFretboard{}
}

type fullFretboard struct{}

func (fullFretboard) mode() model.Mode { return model.ModeFullFretboard }

func (fullFretboard) matches(played note.Note, target Target) bool {
	return played.MIDI == target.MIDI
}

func (fullFretboard) draw(m *Machine) Target {
	return NoteTarget(m.gen.MIDI(m.cfg.LowMIDI, m.cfg.HighMIDI))
}

func (s fullFretboard) advance(m *Machine) (Target, Event) {
	return s.draw(m), EventCorrect
}

func (fullFretboard) name(t Target) string {
	return note.Name(t.MIDI)
}

func (s fullFretboard) describe(t Target) string {
	return "Target: " + s.name(t)
}

func (fullFretboard) played(n note.Note) string {
	return n.String()
}

type byString struct{}

func (byString) mode() model.Mode { return model.ModeByString }

func (byString) matches(played note.Note, target Target) bool {
	return played.PitchClass == target.PitchClass
}

func (byString) draw(m *Machine) Target {
	return ClassTarget(m.gen.PitchClass(), m.selectedString)
}

// advance counts the hit and moves to the next string once the pitch class
// has met its quota.
func (s byString) advance(m *Machine) (Target, Event) {
	pc := m.target.PitchClass
	m.hits[pc]++
	if m.hits[pc] < m.cfg.StringQuota {
		return s.draw(m), EventCorrect
	}
	m.selectedString = (m.selectedString + 1) % len(StandardTuning)
	m.hits = [12]int{}
	return s.draw(m), EventStringAdvanced
}

func (byString) name(t Target) string {
	return t.PitchClass.String()
}

func (s byString) describe(t Target) string {
	str := StandardTuning[stringIndex(t.String)]
	return fmt.Sprintf("Target: %s (String %d, %s)", s.name(t), str.Number, str.Name)
}

func (byString) played(n note.Note) string {
	return n.PitchClass.String()
}

func stringIndex(i int) int {
	if i < 0 || i >= len(StandardTuning) {
		return 0
	}
	return i
}
