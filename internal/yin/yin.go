// Package yin implements a YIN fundamental frequency estimator. The difference
// function is computed through an FFT cross-correlation.
package yin

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Params configures a Detector.
type Params struct {
	WindowSize   int     // Samples per analysed window.
	HopSize      int     // Samples between consecutive windows.
	SampleRate   float64 // Sampling rate in Hz.
	Tolerance    float64 // Absolute threshold on the normalised difference, in (0, 1].
	MinFrequency float64 // Lowest detectable frequency in Hz.
	MaxFrequency float64 // Highest detectable frequency in Hz.
}

// DefaultParams matches a 44.1 kHz guitar input.
var DefaultParams = Params{
	WindowSize:   1024,
	HopSize:      512,
	SampleRate:   44100,
	Tolerance:    0.8,
	MinFrequency: 75,
	MaxFrequency: 1600,
}

// Detector estimates the fundamental frequency of fixed-size windows.
type Detector struct {
	params    Params
	minTau    int
	maxTau    int
	integrate int
	fftSize   int
	diff      []float64
}

// New validates params and returns a Detector.
func New(params Params) (*Detector, error) {
	if params.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be > 0, got %d", params.WindowSize)
	}
	if params.HopSize <= 0 {
		return nil, fmt.Errorf("hop size must be > 0, got %d", params.HopSize)
	}
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0, got %v", params.SampleRate)
	}
	if params.Tolerance <= 0 || params.Tolerance > 1 {
		return nil, fmt.Errorf("tolerance must be in (0, 1], got %v", params.Tolerance)
	}
	if params.MinFrequency <= 0 {
		params.MinFrequency = DefaultParams.MinFrequency
	}
	if params.MaxFrequency <= 0 || params.MaxFrequency > params.SampleRate/2 {
		params.MaxFrequency = params.SampleRate / 2
	}

	// The lag range may exceed half the window; the integration window shrinks to fit.
	maxTau := int(math.Ceil(params.SampleRate/params.MinFrequency)) + 1
	if limit := params.WindowSize - params.WindowSize/4; maxTau > limit {
		maxTau = limit
	}
	minTau := int(math.Floor(params.SampleRate / params.MaxFrequency))
	if minTau < 2 {
		minTau = 2
	}
	if maxTau <= minTau+1 {
		return nil, fmt.Errorf("window of %d samples cannot resolve %.1f-%.1f Hz", params.WindowSize, params.MinFrequency, params.MaxFrequency)
	}
	integrate := params.WindowSize - maxTau

	return &Detector{
		params:    params,
		minTau:    minTau,
		maxTau:    maxTau,
		integrate: integrate,
		fftSize:   nextPow2(params.WindowSize + integrate),
		diff:      make([]float64, maxTau+1),
	}, nil
}

// Estimate returns the fundamental frequency of window and a confidence in [0, 1].
// Windows without a periodic component return (0, 0).
func (d *Detector) Estimate(window []float64) (float64, float64, error) {
	if len(window) != d.params.WindowSize {
		return 0, 0, fmt.Errorf("invalid window size: expected %d, got %d", d.params.WindowSize, len(window))
	}
	if !d.difference(window) {
		return 0, 0, nil
	}
	d.normalise()

	tau := -1
	for t := d.minTau; t <= d.maxTau; t++ {
		if d.diff[t] < d.params.Tolerance {
			for t+1 <= d.maxTau && d.diff[t+1] < d.diff[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		return 0, 0, nil
	}

	period, value := d.interpolate(tau)
	if period <= 0 {
		return 0, 0, nil
	}
	confidence := 1 - value
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return d.params.SampleRate / period, confidence, nil
}

// Close releases detector resources.
func (d *Detector) Close() error {
	d.diff = nil
	return nil
}

// difference fills d.diff with the squared difference function. It reports
// false when the integration window carries no energy.
func (d *Detector) difference(window []float64) bool {
	w := d.integrate
	var energy float64
	for _, v := range window[:w] {
		energy += v * v
	}
	if energy == 0 {
		return false
	}

	full := make([]complex128, d.fftSize)
	head := make([]complex128, d.fftSize)
	for i, v := range window {
		full[i] = complex(v, 0)
		if i < w {
			head[i] = complex(v, 0)
		}
	}
	a := fft.FFT(full)
	b := fft.FFT(head)
	for i := range a {
		a[i] *= complex(real(b[i]), -imag(b[i]))
	}
	acf := fft.IFFT(a)

	shifted := energy
	d.diff[0] = 0
	for tau := 1; tau <= d.maxTau; tau++ {
		shifted += window[tau+w-1]*window[tau+w-1] - window[tau-1]*window[tau-1]
		v := energy + shifted - 2*real(acf[tau])
		if v < 0 {
			v = 0
		}
		d.diff[tau] = v
	}
	return true
}

// normalise applies the cumulative mean normalisation in place.
func (d *Detector) normalise() {
	d.diff[0] = 1
	var sum float64
	for tau := 1; tau < len(d.diff); tau++ {
		sum += d.diff[tau]
		if sum == 0 {
			d.diff[tau] = 1
			continue
		}
		d.diff[tau] *= float64(tau) / sum
	}
}

// interpolate refines tau with a parabola through its neighbours.
func (d *Detector) interpolate(tau int) (float64, float64) {
	if tau <= 0 || tau >= len(d.diff)-1 {
		return float64(tau), d.diff[tau]
	}
	prev, cur, next := d.diff[tau-1], d.diff[tau], d.diff[tau+1]
	den := prev - 2*cur + next
	if den == 0 {
		return float64(tau), cur
	}
	shift := (prev - next) / (2 * den)
	if shift < -1 || shift > 1 {
		return float64(tau), cur
	}
	return float64(tau) + shift, cur - (prev-next)*shift/4
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
