package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/fretiq/internal/engine"
	"github.com/verte-zerg/fretiq/internal/generator"
	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/note"
	"github.com/verte-zerg/fretiq/internal/pitch"
	"github.com/verte-zerg/fretiq/internal/practice"
)

type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeEstimator struct {
	hz float64
	j  *journal
}

func (f *fakeEstimator) Estimate([]float64) (float64, float64, error) { return f.hz, 0.95, nil }

func (f *fakeEstimator) Close() error {
	f.j.add("estimator closed")
	return nil
}

type blockSource struct {
	blocks int
	block  []float32
	err    error
	wait   bool
	j      *journal
}

func (s *blockSource) Run(ctx context.Context, process func([]float32)) error {
	for i := 0; i < s.blocks; i++ {
		process(s.block)
	}
	if s.wait {
		<-ctx.Done()
	}
	s.j.add("source stopped")
	return s.err
}

type fakePrompter struct {
	mu   sync.Mutex
	keys []int
	j    *journal
}

func (p *fakePrompter) Play(key int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePrompter) Close() error {
	p.j.add("prompter closed")
	return nil
}

func loud() []float32 {
	b := make([]float32, 512)
	for i := range b {
		b[i] = 0.3
	}
	return b
}

func setup(t *testing.T, src *blockSource, j *journal) (*Session, *engine.Engine, *fakePrompter) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	est := &fakeEstimator{hz: note.Frequency(52), j: j}
	adapter := pitch.NewAdapter(func(pitch.Params) (pitch.Estimator, error) { return est, nil },
		pitch.Params{WindowSize: 1024, HopSize: 512, SampleRate: 44100, Tolerance: 0.8}, logger)
	clock := time.Unix(0, 0)
	machine := practice.New(practice.DefaultConfig(), model.ModeFullFretboard, generator.NewSeeded(3), func() time.Time { return clock })
	machine.SetTarget(practice.NoteTarget(52))
	eng := engine.New(model.Config{WindowSize: 1024, BufferSize: 2048, RMSThreshold: 0.02}, adapter, machine, logger)
	p := &fakePrompter{j: j}
	s, err := New(Options{
		Engine:       eng,
		Adapter:      adapter,
		Source:       src,
		Prompter:     p,
		Logger:       logger,
		TickInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, eng, p
}

func TestRunUntilSourceExhausted(t *testing.T) {
	j := &journal{}
	src := &blockSource{blocks: 12, block: loud(), j: j}
	s, eng, p := setup(t, src, j)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	sum := s.Summary()
	if sum.Correct != 1 || sum.Misses != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Accuracy != 1 {
		t.Fatalf("expected full accuracy, got %v", sum.Accuracy)
	}
	if len(p.keys) == 0 || p.keys[0] != 52 {
		t.Fatalf("expected the first target to be prompted, got %v", p.keys)
	}
	want := []string{"source stopped", "estimator closed", "prompter closed"}
	got := j.list()
	if len(got) != len(want) {
		t.Fatalf("unexpected teardown %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected teardown order %v", got)
		}
	}
	seq := eng.Snapshot().Seq
	eng.Process(loud())
	if eng.Snapshot().Seq != seq {
		t.Fatalf("engine still processing after teardown")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	j := &journal{}
	src := &blockSource{wait: true, j: j}
	s, _, _ := setup(t, src, j)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := j.list(); len(got) == 0 || got[0] != "source stopped" {
		t.Fatalf("expected source to stop first, got %v", got)
	}
}

func TestRunReportsSourceError(t *testing.T) {
	j := &journal{}
	boom := errors.New("device unplugged")
	src := &blockSource{err: boom, j: j}
	s, _, _ := setup(t, src, j)
	err := s.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	if got := j.list(); len(got) != 3 {
		t.Fatalf("expected full teardown after failure, got %v", got)
	}
}

func TestNewRequiresPipeline(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for empty options")
	}
}
