package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVFile replays decoded samples as fixed-size blocks.
type WAVFile struct {
	Samples    []float32
	SampleRate int
	BlockSize  int
	// Realtime paces blocks at the rate they would arrive from a device.
	Realtime bool
}

// LoadWAV decodes a PCM WAV file, downmixed to mono and normalised to [-1, 1].
func LoadWAV(path string, blockSize int) (*WAVFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	return &WAVFile{
		Samples:    downmix(buf, bitDepth),
		SampleRate: buf.Format.SampleRate,
		BlockSize:  blockSize,
	}, nil
}

func downmix(buf *audio.IntBuffer, bitDepth int) []float32 {
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	scale := 1.0
	if bitDepth > 1 {
		scale = float64(int64(1) << (bitDepth - 1))
	}
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		v := sum / float64(ch) / scale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = float32(v)
	}
	return out
}

// Duration returns the playback length.
func (w *WAVFile) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Run feeds every full block in order, then a zero-padded tail, and returns
// nil once the file is exhausted.
func (w *WAVFile) Run(ctx context.Context, process func(block []float32)) error {
	if w.BlockSize <= 0 {
		return errors.New("block size must be > 0")
	}
	var ticker *time.Ticker
	if w.Realtime && w.SampleRate > 0 {
		ticker = time.NewTicker(time.Duration(w.BlockSize) * time.Second / time.Duration(w.SampleRate))
		defer ticker.Stop()
	}
	block := make([]float32, w.BlockSize)
	for off := 0; off < len(w.Samples); off += w.BlockSize {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		n := copy(block, w.Samples[off:])
		clear(block[n:])
		process(block)
	}
	return nil
}
