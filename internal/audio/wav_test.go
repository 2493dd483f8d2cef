package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeStereoWAV(t *testing.T, path string, left, right []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	data := make([]int, 0, len(left)*2)
	for i := range left {
		data = append(data, left[i], right[i])
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestLoadWAVDownmixesAndNormalises(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	writeStereoWAV(t, path, []int{16384, -32768, 0}, []int{16384, -32768, 16384})

	w, err := LoadWAV(path, 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if w.SampleRate != 44100 {
		t.Fatalf("expected 44100 Hz, got %d", w.SampleRate)
	}
	want := []float32{0.5, -1, 0.25}
	if len(w.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(w.Samples))
	}
	for i, v := range want {
		if math.Abs(float64(w.Samples[i]-v)) > 1e-4 {
			t.Fatalf("sample %d: expected %v, got %v", i, v, w.Samples[i])
		}
	}
}

func TestLoadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWAV(path, 512); err == nil {
		t.Fatalf("expected error for invalid file")
	}
}

func TestWAVFileRunBlocks(t *testing.T) {
	w := &WAVFile{Samples: []float32{1, 2, 3, 4, 5}, SampleRate: 44100, BlockSize: 2}
	var blocks [][]float32
	err := w.Run(context.Background(), func(block []float32) {
		blocks = append(blocks, append([]float32(nil), block...))
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	last := blocks[2]
	if last[0] != 5 || last[1] != 0 {
		t.Fatalf("expected zero-padded tail, got %v", last)
	}
}

func TestWAVFileRunStopsOnCancel(t *testing.T) {
	w := &WAVFile{Samples: make([]float32, 4096), SampleRate: 44100, BlockSize: 512}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	if err := w.Run(ctx, func([]float32) { calls++ }); err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no blocks after cancel, got %d", calls)
	}
}
