package generator

import "testing"

func TestMIDIStaysInRange(t *testing.T) {
	g := NewSeeded(1)
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		m := g.MIDI(40, 88)
		if m < 40 || m > 88 {
			t.Fatalf("draw out of range: %d", m)
		}
		seen[m] = true
	}
	if len(seen) != 49 {
		t.Fatalf("expected every note in [40, 88] to be drawn, got %d distinct", len(seen))
	}
}

func TestMIDISwappedBounds(t *testing.T) {
	g := NewSeeded(2)
	for i := 0; i < 100; i++ {
		if m := g.MIDI(50, 45); m < 45 || m > 50 {
			t.Fatalf("draw out of range: %d", m)
		}
	}
}

func TestPitchClassCoversAll(t *testing.T) {
	g := NewSeeded(3)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		pc := int(g.PitchClass())
		if pc < 0 || pc > 11 {
			t.Fatalf("pitch class out of range: %d", pc)
		}
		seen[pc] = true
	}
	if len(seen) != 12 {
		t.Fatalf("expected all 12 pitch classes, got %d", len(seen))
	}
}

func TestSeededIsDeterministic(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 20; i++ {
		if a.MIDI(40, 88) != b.MIDI(40, 88) {
			t.Fatalf("expected identical sequences for equal seeds")
		}
	}
}
