// Package session runs an audio source through the engine and tears
// everything down in order when the source stops.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/fretiq/internal/audio"
	"github.com/verte-zerg/fretiq/internal/engine"
	"github.com/verte-zerg/fretiq/internal/pitch"
	"github.com/verte-zerg/fretiq/internal/prompt"
	"github.com/verte-zerg/fretiq/internal/stats"
)

const defaultTickInterval = time.Second

// Options configures a Session.
type Options struct {
	Engine   *engine.Engine
	Adapter  *pitch.Adapter
	Source   audio.Source
	Prompter prompt.Prompter
	Logger   *slog.Logger
	// TickInterval defaults to one second.
	TickInterval time.Duration
	// OnNotice is called from the notice goroutine after logging.
	OnNotice func(engine.Notice)
}

// Summary holds the in-memory results of a finished session.
type Summary struct {
	Correct   int
	Misses    int
	Duration  time.Duration
	PerMinute float64
	Accuracy  float64
}

// Session owns the pipeline lifecycle.
type Session struct {
	opts    Options
	logger  *slog.Logger
	summary Summary
}

// New validates opts and returns a Session.
func New(opts Options) (*Session, error) {
	if opts.Engine == nil || opts.Adapter == nil || opts.Source == nil {
		return nil, fmt.Errorf("session requires an engine, an adapter and a source")
	}
	if opts.Prompter == nil {
		opts.Prompter = prompt.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	return &Session{opts: opts, logger: opts.Logger}, nil
}

// Run blocks until ctx is cancelled or the source is exhausted. Teardown is
// always: source stopped, estimator closed, sample buffer released.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if err := s.opts.Source.Run(gctx, s.opts.Engine.Process); err != nil {
			return fmt.Errorf("audio source failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.opts.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.opts.Engine.Tick()
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case n := <-s.opts.Engine.Notices():
				s.handle(n)
			}
		}
	})
	runErr := g.Wait()

	// The source has stopped, so no new notices can arrive.
	s.drain()
	if err := s.opts.Adapter.Close(); err != nil {
		s.logger.Warn("failed to close pitch estimator", "err", err)
	}
	s.opts.Engine.Release()
	if err := s.opts.Prompter.Close(); err != nil {
		s.logger.Warn("failed to close midi output", "err", err)
	}

	s.summarize(time.Since(started))
	return runErr
}

// Summary returns the results of the last Run.
func (s *Session) Summary() Summary {
	return s.summary
}

func (s *Session) drain() {
	for {
		select {
		case n := <-s.opts.Engine.Notices():
			s.handle(n)
		default:
			return
		}
	}
}

func (s *Session) handle(n engine.Notice) {
	switch n.Kind {
	case engine.NoticeDetection:
		s.logger.Debug("detection", "hz", n.Hz, "confidence", n.Confidence, "rms", n.RMS)
	case engine.NoticeMiss:
		s.logger.Info("miss", "played", n.Played, "target", n.Target, "hz", n.Hz)
	case engine.NoticeCorrect:
		s.logger.Info("correct", "played", n.Played, "next", n.Target, "hz", n.Hz)
	case engine.NoticeStringAdvanced:
		s.logger.Info("string advanced", "played", n.Played, "next", n.Target)
	case engine.NoticeTarget:
		s.logger.Debug("target", "mode", n.Mode.String(), "target", n.Target, "reference", n.Reference)
		if err := s.opts.Prompter.Play(n.Reference); err != nil {
			s.logger.Warn("failed to play reference note", "err", err)
		}
	}
	if s.opts.OnNotice != nil {
		s.opts.OnNotice(n)
	}
}

func (s *Session) summarize(d time.Duration) {
	snap := s.opts.Engine.Snapshot()
	if snap == nil {
		return
	}
	perMinute, accuracy := stats.SessionMetrics(snap.Correct, snap.Misses, d)
	s.summary = Summary{
		Correct:   snap.Correct,
		Misses:    snap.Misses,
		Duration:  d,
		PerMinute: perMinute,
		Accuracy:  accuracy,
	}
	s.logger.Info("session finished",
		"correct", snap.Correct,
		"misses", snap.Misses,
		"duration", d.Round(time.Millisecond).String(),
		"per_minute", perMinute,
		"accuracy", accuracy,
	)
}
