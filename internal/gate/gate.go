// Package gate decides whether an audio block carries a signal worth analysing.
package gate

import (
	"math"

	"github.com/verte-zerg/fretiq/internal/model"
)

// DefaultThreshold is the minimum RMS of an accepted block.
const DefaultThreshold = 0.02

// Gate accepts blocks whose RMS reaches a threshold.
type Gate struct {
	threshold float64
}

// New returns a Gate with the given RMS threshold.
func New(threshold float64) *Gate {
	return &Gate{threshold: threshold}
}

// Threshold returns the configured RMS threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Check measures block and reports whether it passes the gate.
// An empty block is never accepted.
func (g *Gate) Check(block []float32) (model.Level, bool) {
	if len(block) == 0 {
		return model.Level{}, false
	}
	level := Measure(block)
	return level, level.RMS >= g.threshold
}

// Measure computes peak and RMS of block. An empty block measures zero.
func Measure(block []float32) model.Level {
	if len(block) == 0 {
		return model.Level{}
	}
	var peak, sum float64
	for _, s := range block {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return model.Level{Peak: peak, RMS: math.Sqrt(sum / float64(len(block)))}
}
