// Package engine runs the per-block judging pipeline on the audio goroutine and
// publishes display snapshots for other goroutines.
package engine

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/fretiq/internal/gate"
	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/note"
	"github.com/verte-zerg/fretiq/internal/pitch"
	"github.com/verte-zerg/fretiq/internal/practice"
	"github.com/verte-zerg/fretiq/internal/ringbuf"
)

const (
	noticeBuffer = 64
	// Detection notices are emitted once per this many analysed blocks.
	defaultLogEvery = 10
	noMode          = -1
)

// NoticeKind classifies an engine notice.
type NoticeKind int

const (
	NoticeDetection NoticeKind = iota
	NoticeMiss
	NoticeCorrect
	NoticeStringAdvanced
	NoticeTarget
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeDetection:
		return "detection"
	case NoticeMiss:
		return "miss"
	case NoticeCorrect:
		return "correct"
	case NoticeStringAdvanced:
		return "string-advanced"
	case NoticeTarget:
		return "target"
	default:
		return "unknown"
	}
}

// Notice reports something worth logging or reacting to. Notices are sent
// without blocking; when the channel is full they are dropped and counted.
type Notice struct {
	Kind       NoticeKind
	Mode       model.Mode
	Hz         float64
	Confidence float64
	RMS        float64
	Played     string
	Target     string
	// Reference is a MIDI note that sounds the current target.
	Reference int
	Seq       uint64
}

// Engine owns the pipeline state. Process must only be called from one
// goroutine; every other method is safe for concurrent use.
type Engine struct {
	cfg     model.Config
	ring    *ringbuf.Buffer
	gate    *gate.Gate
	adapter *pitch.Adapter
	machine *practice.Machine
	logger  *slog.Logger
	window  []float32

	seq        uint64
	analysed   int
	logEvery   int
	startedAt  time.Time
	snapshot   atomic.Pointer[model.Snapshot]
	pending    atomic.Int32
	skip       atomic.Bool
	released   atomic.Bool
	notices    chan Notice
	dropped    atomic.Uint64
	lastTarget practice.Target
}

// New wires an engine around adapter and machine and publishes the initial
// snapshot. cfg supplies the ring capacity, window length and gate threshold.
// A zero threshold analyses every block; a negative one uses the default.
func New(cfg model.Config, adapter *pitch.Adapter, machine *practice.Machine, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	capacity := cfg.BufferSize
	if capacity < cfg.WindowSize {
		capacity = cfg.WindowSize
	}
	ring := ringbuf.New(capacity)
	windowSize := cfg.WindowSize
	if windowSize <= 0 || windowSize > ring.Cap() {
		windowSize = ring.Cap()
	}
	threshold := cfg.RMSThreshold
	if threshold < 0 {
		threshold = gate.DefaultThreshold
	}
	e := &Engine{
		cfg:       cfg,
		ring:      ring,
		gate:      gate.New(threshold),
		adapter:   adapter,
		machine:   machine,
		logger:    logger,
		window:    make([]float32, windowSize),
		logEvery:  defaultLogEvery,
		startedAt: time.Now(),
		notices:   make(chan Notice, noticeBuffer),
	}
	e.pending.Store(noMode)
	e.lastTarget = machine.Target()
	e.publish(model.Level{}, model.Observation{})
	e.notify(Notice{Kind: NoticeTarget})
	return e
}

// Threshold returns the RMS threshold of the signal gate.
func (e *Engine) Threshold() float64 {
	return e.gate.Threshold()
}

// SetLogEvery changes how often detection notices are emitted. n < 1 disables them.
func (e *Engine) SetLogEvery(n int) {
	e.logEvery = n
}

// Process runs one block through the pipeline. It never blocks.
func (e *Engine) Process(block []float32) {
	if e.released.Load() {
		return
	}
	e.applyRequests()
	e.ring.Write(block)

	level, ok := e.gate.Check(block)
	var obs model.Observation
	var ev practice.Event
	if ok {
		e.ring.LatestWindowInto(e.window)
		obs = e.adapter.Observe(e.window)
		ev = e.machine.Observe(obs)
		e.analysed++
	} else {
		ev = e.machine.Reject()
	}

	e.publish(level, obs)
	if ok && e.logEvery > 0 && e.analysed%e.logEvery == 0 {
		e.notify(Notice{Kind: NoticeDetection, Hz: obs.Hz, Confidence: obs.Confidence, RMS: level.RMS})
	}
	switch ev {
	case practice.EventMiss:
		e.notify(Notice{Kind: NoticeMiss, Hz: obs.Hz, Confidence: obs.Confidence})
	case practice.EventCorrect:
		e.notify(Notice{Kind: NoticeCorrect, Hz: obs.Hz, Confidence: obs.Confidence})
	case practice.EventStringAdvanced:
		e.notify(Notice{Kind: NoticeStringAdvanced, Hz: obs.Hz, Confidence: obs.Confidence})
	}
	e.checkTarget()
}

// RequestMode asks the audio goroutine to switch mode before the next block.
// A later request replaces an earlier one that has not been applied yet.
func (e *Engine) RequestMode(mode model.Mode) {
	e.pending.Store(int32(mode))
}

// ToggleMode requests the mode other than the pending one, or the one last
// published when nothing is pending.
func (e *Engine) ToggleMode() {
	for {
		pending := e.pending.Load()
		current := e.Snapshot().Mode
		if pending != noMode {
			current = model.Mode(pending)
		}
		next := model.ModeByString
		if current == model.ModeByString {
			next = model.ModeFullFretboard
		}
		if e.pending.CompareAndSwap(pending, int32(next)) {
			return
		}
	}
}

// RequestSkip asks the audio goroutine to draw a new target before the next block.
func (e *Engine) RequestSkip() {
	e.skip.Store(true)
}

// Snapshot returns the latest published snapshot. The value must not be modified.
func (e *Engine) Snapshot() *model.Snapshot {
	return e.snapshot.Load()
}

// Notices returns the channel of engine notices.
func (e *Engine) Notices() <-chan Notice {
	return e.notices
}

// Dropped returns how many notices were discarded because the channel was full.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// Tick logs a status line from the latest snapshot. It never touches judging state.
func (e *Engine) Tick() {
	s := e.Snapshot()
	if s == nil {
		return
	}
	attrs := []any{
		"mode", s.Mode.String(),
		"target", s.TargetText,
		"rms", round3(s.Level.RMS),
		"peak", round3(s.Level.Peak),
		"correct", s.Correct,
		"misses", s.Misses,
	}
	if s.Detected.Hz > 0 {
		attrs = append(attrs, "hz", round3(s.Detected.Hz), "confidence", round3(s.Detected.Confidence))
		if midi, ok := note.FrequencyToMIDI(s.Detected.Hz); ok {
			attrs = append(attrs, "note", note.Name(midi))
		}
	}
	if dropped := e.Dropped(); dropped > 0 {
		attrs = append(attrs, "dropped_notices", dropped)
	}
	e.logger.Info("status", attrs...)
}

// Release drops the sample buffer. Process is a no-op afterwards. The caller
// must have stopped the audio source and closed the adapter first.
func (e *Engine) Release() {
	if e.released.Swap(true) {
		return
	}
	e.ring.Reset()
	e.window = nil
}

func (e *Engine) applyRequests() {
	if mode := e.pending.Swap(noMode); mode != noMode {
		e.machine.SetMode(model.Mode(mode))
		e.logger.Debug("mode changed", "mode", model.Mode(mode).String())
	}
	if e.skip.Swap(false) {
		e.machine.Skip()
	}
}

// checkTarget emits a target notice whenever the machine moved to a new target.
func (e *Engine) checkTarget() {
	t := e.machine.Target()
	if t == e.lastTarget {
		return
	}
	e.lastTarget = t
	e.notify(Notice{Kind: NoticeTarget})
}

func (e *Engine) publish(level model.Level, obs model.Observation) {
	e.seq++
	s := &model.Snapshot{
		Seq:         e.seq,
		Detected:    obs,
		Level:       level,
		Unavailable: e.adapter.Degraded(),
		StartedAt:   e.startedAt,
	}
	e.machine.Fill(s)
	e.snapshot.Store(s)
}

func (e *Engine) notify(n Notice) {
	s := e.snapshot.Load()
	n.Mode = s.Mode
	n.Played = s.DetectedText
	n.Target = s.TargetText
	n.Reference = s.Reference
	n.Seq = s.Seq
	select {
	case e.notices <- n:
	default:
		e.dropped.Add(1)
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
