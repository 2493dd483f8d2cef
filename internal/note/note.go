// Package note maps frequencies and MIDI numbers to note names.
package note

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// ConcertA is the reference frequency of A4.
	ConcertA = 440.0
	// ConcertAMIDI is the MIDI number of A4.
	ConcertAMIDI = 69
	// NoNote is returned when a frequency does not map to a MIDI note.
	NoNote = -1

	minMIDI = 0
	maxMIDI = 127
)

// PitchClass is a note name independent of octave, 0 = C through 11 = B.
type PitchClass int

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// String returns the sharp spelling of the pitch class.
func (p PitchClass) String() string {
	return pitchClassNames[floorMod(int(p), 12)]
}

// PitchClasses lists all twelve pitch classes in chromatic order.
func PitchClasses() []PitchClass {
	out := make([]PitchClass, 12)
	for i := range out {
		out[i] = PitchClass(i)
	}
	return out
}

// Note is a MIDI note with its derived pitch class and octave.
type Note struct {
	MIDI       int
	PitchClass PitchClass
	Octave     int
}

// String returns the scientific pitch name, e.g. "C#4".
func (n Note) String() string {
	return Name(n.MIDI)
}

// FromMIDI derives a Note from a MIDI number.
func FromMIDI(midi int) Note {
	return Note{MIDI: midi, PitchClass: PitchClassOf(midi), Octave: Octave(midi)}
}

// FromFrequency maps a frequency to the nearest Note.
func FromFrequency(hz float64) (Note, bool) {
	midi, ok := FrequencyToMIDI(hz)
	if !ok {
		return Note{MIDI: NoNote}, false
	}
	return FromMIDI(midi), true
}

// FrequencyToMIDI rounds a frequency to the nearest MIDI note.
// Non-positive, non-finite, or out of range frequencies yield (NoNote, false).
func FrequencyToMIDI(hz float64) (int, bool) {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return NoNote, false
	}
	midi := int(math.Round(12*math.Log2(hz/ConcertA) + ConcertAMIDI))
	if midi < minMIDI || midi > maxMIDI {
		return NoNote, false
	}
	return midi, true
}

// Frequency returns the equal-tempered frequency of a MIDI note.
func Frequency(midi int) float64 {
	return ConcertA * math.Pow(2, float64(midi-ConcertAMIDI)/12)
}

// Cents returns how far hz is from the given MIDI note, in cents.
func Cents(hz float64, midi int) float64 {
	if hz <= 0 {
		return 0
	}
	return 1200 * math.Log2(hz/Frequency(midi))
}

// PitchClassOf returns the pitch class of any MIDI number.
func PitchClassOf(midi int) PitchClass {
	return PitchClass(floorMod(midi, 12))
}

// Octave returns the scientific octave of a MIDI number (MIDI 60 is octave 4).
func Octave(midi int) int {
	return floorDiv(midi, 12) - 1
}

// Name returns the note name of a MIDI number, e.g. 60 -> "C4".
func Name(midi int) string {
	return PitchClassOf(midi).String() + strconv.Itoa(Octave(midi))
}

// ParsePitchClass parses "C", "c#", "Db" and similar spellings.
func ParsePitchClass(s string) (PitchClass, error) {
	s = strings.TrimSpace(s)
	pc, rest, err := parseClassPrefix(s)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("invalid pitch class %q", s)
	}
	return PitchClass(floorMod(pc, 12)), nil
}

// ParseName parses a note name such as "C#4", "db3" or "A-1" into a MIDI number.
func ParseName(s string) (int, error) {
	s = strings.TrimSpace(s)
	pc, rest, err := parseClassPrefix(s)
	if err != nil {
		return NoNote, err
	}
	if rest == "" {
		return NoNote, fmt.Errorf("note %q has no octave", s)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return NoNote, fmt.Errorf("invalid octave in %q", s)
	}
	midi := (octave+1)*12 + pc
	if midi < minMIDI || midi > maxMIDI {
		return NoNote, fmt.Errorf("note %q is outside the MIDI range", s)
	}
	return midi, nil
}

// parseClassPrefix reads the letter and optional accidental. The returned
// semitone offset is not wrapped, so "Cb" is -1.
func parseClassPrefix(s string) (int, string, error) {
	if s == "" {
		return 0, "", fmt.Errorf("empty note name")
	}
	var base int
	switch s[0] {
	case 'C', 'c':
		base = 0
	case 'D', 'd':
		base = 2
	case 'E', 'e':
		base = 4
	case 'F', 'f':
		base = 5
	case 'G', 'g':
		base = 7
	case 'A', 'a':
		base = 9
	case 'B', 'b':
		base = 11
	default:
		return 0, "", fmt.Errorf("invalid note letter in %q", s)
	}
	rest := s[1:]
	if rest != "" {
		switch rest[0] {
		case '#':
			base++
			rest = rest[1:]
		case 'b':
			base--
			rest = rest[1:]
		}
	}
	return base, rest, nil
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}
