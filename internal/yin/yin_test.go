package yin

import (
	"math"
	"testing"
)

func sine(hz, sampleRate float64, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*hz*float64(i)/sampleRate)
	}
	return out
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultParams)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestEstimateSines(t *testing.T) {
	d := newTestDetector(t)
	for _, hz := range []float64{440, 220} {
		got, conf, err := d.Estimate(sine(hz, 44100, 1024, 0.5))
		if err != nil {
			t.Fatalf("estimate %v Hz: %v", hz, err)
		}
		if math.Abs(got-hz) > 1 {
			t.Fatalf("expected %v Hz, got %.2f", hz, got)
		}
		if conf < 0.8 {
			t.Fatalf("expected confidence >= 0.8 for %v Hz, got %.3f", hz, conf)
		}
	}
}

func TestEstimateSilence(t *testing.T) {
	d := newTestDetector(t)
	hz, conf, err := d.Estimate(make([]float64, 1024))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if hz != 0 || conf != 0 {
		t.Fatalf("expected (0, 0) for silence, got (%v, %v)", hz, conf)
	}
}

func TestEstimateRejectsWrongWindow(t *testing.T) {
	d := newTestDetector(t)
	if _, _, err := d.Estimate(make([]float64, 512)); err == nil {
		t.Fatalf("expected error for short window")
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	bad := []Params{
		{WindowSize: 0, HopSize: 512, SampleRate: 44100, Tolerance: 0.8},
		{WindowSize: 1024, HopSize: 0, SampleRate: 44100, Tolerance: 0.8},
		{WindowSize: 1024, HopSize: 512, SampleRate: 0, Tolerance: 0.8},
		{WindowSize: 1024, HopSize: 512, SampleRate: 44100, Tolerance: 1.5},
		{WindowSize: 8, HopSize: 4, SampleRate: 44100, Tolerance: 0.8, MinFrequency: 75, MaxFrequency: 1600},
	}
	for i, p := range bad {
		if _, err := New(p); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, p)
		}
	}
}
