package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestPlotSharedScale(t *testing.T) {
	var buf bytes.Buffer
	nan := math.NaN()
	err := Plot(&buf, "Pitch", []Series{
		{Name: "played", Values: []float64{60, 61, nan, 64, 64}},
		{Name: "target", Values: []float64{64, 64, 64, 64, 64}},
	}, PlotOptions{Width: 10, Height: 4, Label: func(v float64) string {
		return strings.Repeat("#", int(v)-59)
	}})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1+4+1 {
		t.Fatalf("expected title, 4 rows and legend, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Pitch" {
		t.Fatalf("expected title, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "#####") {
		t.Fatalf("expected top label for the maximum, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[4], "    #") {
		t.Fatalf("expected right-aligned bottom label for the minimum, got %q", lines[4])
	}
	if !strings.Contains(lines[5], "played (solid)") || !strings.Contains(lines[5], "target (dotted)") {
		t.Fatalf("unexpected legend %q", lines[5])
	}
}

func TestPlotSkipsEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	nan := math.NaN()
	if err := Plot(&buf, "x", []Series{{Name: "gaps", Values: []float64{nan, nan}}}, PlotOptions{Width: 10}); err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestResampleKeepsGaps(t *testing.T) {
	got := resampleSeries([]float64{1, math.NaN(), math.NaN(), 3}, 4)
	if got[0] != 1 || !math.IsNaN(got[1]) || !math.IsNaN(got[2]) || got[3] != 3 {
		t.Fatalf("unexpected resample %v", got)
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80, 4); got != 80-4-3 {
		t.Fatalf("unexpected width %d", got)
	}
	if got := PlotWidthFor(0, 4); got != minPlotWidth {
		t.Fatalf("expected min width, got %d", got)
	}
}
