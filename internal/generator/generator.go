// Package generator draws random practice targets.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/fretiq/internal/note"
)

// Generator produces uniformly random targets.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// MIDI draws a note uniformly from [lo, hi]. Swapped bounds are reordered.
func (g *Generator) MIDI(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + g.rnd.Intn(hi-lo+1)
}

// PitchClass draws one of the twelve pitch classes uniformly.
func (g *Generator) PitchClass() note.PitchClass {
	return note.PitchClass(g.rnd.Intn(12))
}
