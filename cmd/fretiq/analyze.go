package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/fretiq/internal/audio"
	"github.com/verte-zerg/fretiq/internal/engine"
	"github.com/verte-zerg/fretiq/internal/generator"
	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/note"
	"github.com/verte-zerg/fretiq/internal/practice"
	"github.com/verte-zerg/fretiq/internal/session"
	"github.com/verte-zerg/fretiq/internal/stats"
)

const levelColumns = 72

type analyzeOptions struct {
	settings
	target   string
	seed     int64
	plot     bool
	smooth   int
	realtime bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Replay a WAV recording through the practice pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeCmd(cmd, args[0], opts)
		},
	}
	bindPracticeFlags(cmd, &opts.settings)
	flags := cmd.Flags()
	flags.StringVar(&opts.target, "target", "", "fixed first target: a note name (A2) or, in by-string mode, a pitch class (A)")
	flags.Int64Var(&opts.seed, "seed", 0, "seed for target draws (0 = random)")
	flags.BoolVar(&opts.plot, "plot", false, "plot detected pitch against the target")
	flags.IntVar(&opts.smooth, "smooth", 3, "blocks averaged in the plotted pitch line")
	flags.BoolVar(&opts.realtime, "realtime", false, "pace blocks at the recording's sample rate")
	return cmd
}

// analyzeEvent is one judged event on the recording's timeline.
type analyzeEvent struct {
	at     time.Duration
	kind   engine.NoticeKind
	target string
	played string
	hz     float64
}

// tracingSource records the published snapshot after every block. Events
// come from snapshot changes rather than notices, so a fast replay cannot
// lose them to a full notice channel.
type tracingSource struct {
	src       audio.Source
	snapshot  func() *model.Snapshot
	blockTime time.Duration
	prev      *model.Snapshot
	clock     *blockClock
	detected  []float64
	targets   []float64
	levels    []float64
	events    []analyzeEvent
}

func (t *tracingSource) Run(ctx context.Context, process func(block []float32)) error {
	t.prev = t.snapshot()
	return t.src.Run(ctx, func(block []float32) {
		t.clock.advance()
		process(block)
		s := t.snapshot()
		if s == nil {
			return
		}
		t.detected = append(t.detected, fractionalMIDI(s.Detected.Hz))
		t.targets = append(t.targets, float64(s.Reference))
		t.levels = append(t.levels, s.Level.RMS)
		t.record(s)
		t.prev = s
	})
}

func (t *tracingSource) record(s *model.Snapshot) {
	if t.prev == nil {
		return
	}
	at := time.Duration(len(t.detected)) * t.blockTime
	add := func(kind engine.NoticeKind, target string) {
		t.events = append(t.events, analyzeEvent{
			at:     at,
			kind:   kind,
			target: target,
			played: s.DetectedText,
			hz:     s.Detected.Hz,
		})
	}
	if s.Misses > t.prev.Misses {
		add(engine.NoticeMiss, t.prev.TargetText)
	}
	if s.Correct > t.prev.Correct {
		add(engine.NoticeCorrect, t.prev.TargetText)
	}
	if s.Mode == t.prev.Mode && s.String != t.prev.String {
		add(engine.NoticeStringAdvanced, s.TargetText)
	}
	if s.TargetText != t.prev.TargetText {
		add(engine.NoticeTarget, s.TargetText)
	}
}

// blockClock is the judging clock during replay: it advances one block per
// processed block, so timing does not depend on how fast the file is read.
type blockClock struct {
	at   time.Time
	step time.Duration
}

func (c *blockClock) now() time.Time { return c.at }

func (c *blockClock) advance() { c.at = c.at.Add(c.step) }

func runAnalyzeCmd(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	wav, err := audio.LoadWAV(path, opts.blockSize)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("sample-rate") {
		if err := cmd.Flags().Set("sample-rate", fmt.Sprintf("%d", wav.SampleRate)); err != nil {
			return err
		}
	}
	cfg, err := resolveConfig(cmd, &opts.settings)
	if err != nil {
		return err
	}
	if cfg.SampleRate != wav.SampleRate {
		return fmt.Errorf("--sample-rate %d does not match the recording (%d Hz)", cfg.SampleRate, wav.SampleRate)
	}
	wav.BlockSize = cfg.BlockSize
	wav.Realtime = opts.realtime

	target, err := parseTarget(opts.target, cfg.Mode)
	if err != nil {
		return err
	}
	gen := generator.New()
	if opts.seed != 0 {
		gen = generator.NewSeeded(opts.seed)
	}
	logger, closeLog, err := newLogger(opts.logLevel, "", false)
	if err != nil {
		return err
	}
	defer closeLog()

	blockTime := time.Duration(cfg.BlockSize) * time.Second / time.Duration(cfg.SampleRate)
	clock := &blockClock{at: time.Unix(0, 0), step: blockTime}
	pipe := buildPipeline(cfg, gen, target, clock.now, logger)
	trace := &tracingSource{
		src:       wav,
		snapshot:  pipe.engine.Snapshot,
		blockTime: blockTime,
		clock:     clock,
	}
	sess, err := session.New(session.Options{
		Engine:  pipe.engine,
		Adapter: pipe.adapter,
		Source:  trace,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if err := sess.Run(cmd.Context()); err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s at %d Hz, %d blocks\n", path, wav.Duration().Round(time.Millisecond), wav.SampleRate, len(trace.detected))
	if len(trace.levels) > 0 {
		fmt.Fprintf(out, "Level %s\n", stats.AutoSparkline(bucketMax(trace.levels, levelColumns)))
	}
	writeEvents(out, trace.events)
	sum := sess.Summary()
	sum.Duration = wav.Duration()
	sum.PerMinute, sum.Accuracy = stats.SessionMetrics(sum.Correct, sum.Misses, sum.Duration)
	if err := printSummary(cmd, sum); err != nil {
		return err
	}
	if !opts.plot {
		return nil
	}
	fmt.Fprintln(out)
	return stats.Plot(out, "Pitch (MIDI)", []stats.Series{
		{Name: "detected", Values: stats.MovingAverage(trace.detected, opts.smooth)},
		{Name: "target", Values: trace.targets},
	}, stats.PlotOptions{
		Color: stats.UseColor(os.Stdout),
		Label: func(v float64) string { return note.Name(int(math.Round(v))) },
	})
}

func writeEvents(w io.Writer, events []analyzeEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		hz := ""
		if ev.hz > 0 {
			hz = fmt.Sprintf("%.1f", ev.hz)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%.2fs", ev.at.Seconds()),
			ev.kind.String(),
			ev.target,
			ev.played,
			hz,
		})
	}
	for _, line := range stats.FormatTable([]string{"Time", "Event", "Target", "Played", "Hz"}, rows, map[int]bool{0: true, 4: true}) {
		fmt.Fprintln(w, line)
	}
}

// parseTarget reads --target. An empty value keeps the random first draw.
func parseTarget(s string, mode model.Mode) (*practice.Target, error) {
	if s == "" {
		return nil, nil
	}
	if midi, err := note.ParseName(s); err == nil {
		if mode == model.ModeByString {
			t := practice.ClassTarget(note.PitchClassOf(midi), 0)
			return &t, nil
		}
		t := practice.NoteTarget(midi)
		return &t, nil
	}
	pc, err := note.ParsePitchClass(s)
	if err != nil {
		return nil, fmt.Errorf("--target: %w", err)
	}
	if mode != model.ModeByString {
		return nil, fmt.Errorf("--target %q needs an octave in full-fretboard mode", s)
	}
	t := practice.ClassTarget(pc, 0)
	return &t, nil
}

// fractionalMIDI maps hz onto the MIDI scale without rounding; NaN marks no pitch.
func fractionalMIDI(hz float64) float64 {
	if hz <= 0 {
		return math.NaN()
	}
	return 69 + 12*math.Log2(hz/440)
}

// bucketMax shrinks values to at most n buckets, keeping each bucket's peak.
func bucketMax(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		lo := i * len(values) / n
		hi := (i + 1) * len(values) / n
		peak := values[lo]
		for _, v := range values[lo+1 : hi] {
			peak = math.Max(peak, v)
		}
		out[i] = peak
	}
	return out
}
