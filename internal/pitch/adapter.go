// Package pitch adapts audio blocks to a fixed-window pitch estimator.
package pitch

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/verte-zerg/fretiq/internal/model"
)

// ErrUnavailable reports that the estimator could not be initialized.
var ErrUnavailable = errors.New("pitch detection unavailable")

// Params are handed to the estimator once at initialization.
type Params struct {
	WindowSize int
	HopSize    int
	SampleRate int
	Tolerance  float64
}

// Estimator returns a fundamental frequency and confidence for a window of
// exactly WindowSize samples.
type Estimator interface {
	Estimate(window []float64) (hz, confidence float64, err error)
	Close() error
}

// Factory initializes an Estimator.
type Factory func(Params) (Estimator, error)

// Adapter packages blocks into the estimator's window. When initialization
// fails the adapter stays degraded and every observation is zero.
type Adapter struct {
	est    Estimator
	params Params
	window []float64
	err    error
	failed uint64
}

// NewAdapter initializes the estimator. A failure is logged once and leaves
// the adapter degraded; it is never retried.
func NewAdapter(factory Factory, params Params, logger *slog.Logger) *Adapter {
	a := &Adapter{params: params}
	if params.WindowSize <= 0 {
		a.err = fmt.Errorf("%w: window size must be > 0", ErrUnavailable)
	} else {
		est, err := factory(params)
		switch {
		case err != nil:
			a.err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		case est == nil:
			a.err = fmt.Errorf("%w: estimator factory returned nil", ErrUnavailable)
		default:
			a.est = est
			a.window = make([]float64, params.WindowSize)
		}
	}
	if a.err != nil && logger != nil {
		logger.Error("failed to initialize pitch estimator", "err", a.err)
	}
	return a
}

// Degraded reports whether pitch detection is permanently disabled.
func (a *Adapter) Degraded() bool {
	return a.est == nil
}

// Err returns the initialization error, if any.
func (a *Adapter) Err() error {
	return a.err
}

// Failures returns how many Estimate calls returned an error.
func (a *Adapter) Failures() uint64 {
	return a.failed
}

// Observe zero-pads or truncates block to the window length and estimates its pitch.
func (a *Adapter) Observe(block []float32) model.Observation {
	if a.est == nil {
		return model.Observation{}
	}
	n := copyWindow(a.window, block)
	clear(a.window[n:])
	hz, confidence, err := a.est.Estimate(a.window)
	if err != nil {
		a.failed++
		return model.Observation{}
	}
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) || math.IsNaN(confidence) {
		return model.Observation{}
	}
	return model.Observation{Hz: hz, Confidence: math.Max(0, math.Min(1, confidence))}
}

// Close releases the estimator. Observe must not be called afterwards.
func (a *Adapter) Close() error {
	if a.est == nil {
		return nil
	}
	err := a.est.Close()
	a.est = nil
	a.window = nil
	if err != nil {
		return fmt.Errorf("failed to release estimator: %w", err)
	}
	return nil
}

func copyWindow(dst []float64, src []float32) int {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = float64(src[i])
	}
	return n
}
