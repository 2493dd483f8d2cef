// Package stats computes in-session practice metrics and renders them as text.
package stats

import (
	"math"
	"strings"
	"time"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics returns completed targets per minute and accuracy for a session.
// Accuracy is correct / (correct + misses); it is 0 when nothing was judged.
func SessionMetrics(correct, misses int, d time.Duration) (perMinute, accuracy float64) {
	den := float64(correct + misses)
	if den > 0 {
		accuracy = float64(correct) / den
	}
	minutes := d.Minutes()
	if minutes <= 0 {
		return 0, accuracy
	}
	return float64(correct) / minutes, accuracy
}

// MovingAverage computes a rolling mean over the provided window size.
// NaN values are gaps: they stay NaN and are left out of neighbouring means.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	count := 0
	for i, v := range values {
		if !math.IsNaN(v) {
			sum += v
			count++
		}
		if i >= window {
			if old := values[i-window]; !math.IsNaN(old) {
				sum -= old
				count--
			}
		}
		if math.IsNaN(v) || count == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}

// Sparkline renders values on a fixed [lo, hi] scale, one character each.
// Values outside the scale are clamped.
func Sparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}
	if hi-lo < 1e-12 {
		return strings.Repeat(string(sparkChars[0]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - lo) / (hi - lo)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 || math.IsNaN(pos) {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// AutoSparkline scales the sparkline to the range of values.
func AutoSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	return Sparkline(values, minVal, maxVal)
}
