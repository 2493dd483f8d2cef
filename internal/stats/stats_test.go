package stats

import (
	"math"
	"testing"
	"time"
)

func TestSessionMetrics(t *testing.T) {
	perMinute, acc := SessionMetrics(30, 10, 2*time.Minute)
	if perMinute != 15 {
		t.Fatalf("expected 15 per minute, got %v", perMinute)
	}
	if acc != 0.75 {
		t.Fatalf("expected accuracy 0.75, got %v", acc)
	}
}

func TestSessionMetricsEmpty(t *testing.T) {
	perMinute, acc := SessionMetrics(0, 0, 0)
	if perMinute != 0 || acc != 0 {
		t.Fatalf("expected zeros, got %v %v", perMinute, acc)
	}
	perMinute, acc = SessionMetrics(3, 1, 0)
	if perMinute != 0 || acc != 0.75 {
		t.Fatalf("expected accuracy without rate, got %v %v", perMinute, acc)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSparklineFixedScale(t *testing.T) {
	got := Sparkline([]float64{0, 0.5, 1, 2, -1}, 0, 1)
	if got != " +@@ " {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if Sparkline(nil, 0, 1) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestAutoSparklineFlat(t *testing.T) {
	if got := AutoSparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
}

func TestMovingAverageSkipsGaps(t *testing.T) {
	nan := math.NaN()
	got := MovingAverage([]float64{2, nan, 4, 6}, 2)
	if got[0] != 2 || !math.IsNaN(got[1]) || got[2] != 4 || got[3] != 5 {
		t.Fatalf("unexpected average %v", got)
	}
}
