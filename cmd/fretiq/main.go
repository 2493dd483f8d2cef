// Package main provides the CLI entrypoint for fretiq.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/fretiq/internal/audio"
	"github.com/verte-zerg/fretiq/internal/config"
	"github.com/verte-zerg/fretiq/internal/engine"
	"github.com/verte-zerg/fretiq/internal/generator"
	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/pitch"
	"github.com/verte-zerg/fretiq/internal/practice"
	"github.com/verte-zerg/fretiq/internal/prompt"
	"github.com/verte-zerg/fretiq/internal/session"
	"github.com/verte-zerg/fretiq/internal/tui"
)

const (
	defaultMode         = "full-fretboard"
	defaultSampleRate   = 44100
	defaultBlockSize    = 512
	defaultWindowSize   = 1024
	defaultBufferSize   = 2048
	defaultTolerance    = 0.8
	defaultRMSThreshold = 0.02
	defaultConfidence   = 0.8
	defaultStableFrames = 5
	defaultQuota        = 2
	defaultCelebrateMs  = 500
	defaultLogLevel     = "info"
)

// settings holds the flag values shared by practice and analyze.
type settings struct {
	mode         string
	stableFrames int
	confidence   float64
	rmsThreshold float64
	quota        int
	celebrateMs  int
	sampleRate   int
	blockSize    int
	windowSize   int
	bufferSize   int
	tolerance    float64
	midiOut      string
	logLevel     string
	logFile      string
}

var practiceSettings settings

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fretiq",
		Short:         "Fretboard note trainer that listens to your instrument",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runPracticeCmd,
	}
	bindPracticeFlags(rootCmd, &practiceSettings)
	rootCmd.Flags().StringVar(&practiceSettings.midiOut, "midi-out", "", "MIDI output (name substring) that sounds each target")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	return rootCmd
}

func bindPracticeFlags(cmd *cobra.Command, s *settings) {
	flags := cmd.Flags()
	flags.StringVar(&s.mode, "mode", defaultMode, "practice mode: full-fretboard or by-string")
	flags.IntVar(&s.stableFrames, "stable-frames", defaultStableFrames, "consecutive matching blocks needed for a correct note")
	flags.Float64Var(&s.confidence, "confidence", defaultConfidence, "minimum pitch confidence (0-1)")
	flags.Float64Var(&s.rmsThreshold, "rms-threshold", defaultRMSThreshold, "minimum block RMS analysed")
	flags.IntVar(&s.quota, "quota", defaultQuota, "hits per pitch class before moving to the next string")
	flags.IntVar(&s.celebrateMs, "celebrate-ms", defaultCelebrateMs, "pause after a correct note in milliseconds")
	flags.IntVar(&s.sampleRate, "sample-rate", defaultSampleRate, "capture sample rate in Hz")
	flags.IntVar(&s.blockSize, "block-size", defaultBlockSize, "samples per audio block")
	flags.IntVar(&s.windowSize, "window-size", defaultWindowSize, "pitch estimator window in samples")
	flags.IntVar(&s.bufferSize, "buffer-size", defaultBufferSize, "sample ring capacity")
	flags.Float64Var(&s.tolerance, "tolerance", defaultTolerance, "pitch estimator tolerance (0-1]")
	flags.StringVar(&s.logLevel, "log-level", defaultLogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&s.logFile, "log-file", "", "log file used while the terminal UI runs")
}

// resolveConfig merges the config file under the flags; flags set on the
// command line win.
func resolveConfig(cmd *cobra.Command, s *settings) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "mode", &s.mode, fileCfg.Practice.Mode)
	applyIntConfig(cmd, "stable-frames", &s.stableFrames, fileCfg.Practice.StableFrames)
	applyFloatConfig(cmd, "confidence", &s.confidence, fileCfg.Practice.Confidence)
	applyFloatConfig(cmd, "rms-threshold", &s.rmsThreshold, fileCfg.Practice.RMSThreshold)
	applyIntConfig(cmd, "quota", &s.quota, fileCfg.Practice.StringQuota)
	applyIntConfig(cmd, "celebrate-ms", &s.celebrateMs, fileCfg.Practice.CelebrateMs)
	applyIntConfig(cmd, "sample-rate", &s.sampleRate, fileCfg.Audio.SampleRate)
	applyIntConfig(cmd, "block-size", &s.blockSize, fileCfg.Audio.BlockSize)
	applyIntConfig(cmd, "window-size", &s.windowSize, fileCfg.Audio.WindowSize)
	applyIntConfig(cmd, "buffer-size", &s.bufferSize, fileCfg.Audio.BufferSize)
	applyFloatConfig(cmd, "tolerance", &s.tolerance, fileCfg.Audio.Tolerance)
	applyStringConfig(cmd, "midi-out", &s.midiOut, fileCfg.Audio.MIDIOut)
	applyStringConfig(cmd, "log-level", &s.logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &s.logFile, fileCfg.Log.File)

	mode, err := model.ParseMode(s.mode)
	if err != nil {
		return model.Config{}, fmt.Errorf("--mode: %w", err)
	}
	cfg := model.Config{
		Mode:                mode,
		SampleRate:          s.sampleRate,
		BlockSize:           s.blockSize,
		WindowSize:          s.windowSize,
		BufferSize:          s.bufferSize,
		Tolerance:           s.tolerance,
		RMSThreshold:        s.rmsThreshold,
		ConfidenceThreshold: s.confidence,
		StableFrames:        s.stableFrames,
		StringQuota:         s.quota,
		CelebrateDelay:      msDuration(s.celebrateMs),
		MIDIOut:             strings.TrimSpace(s.midiOut),
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	if _, err := parseLevel(s.logLevel); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, &practiceSettings)
	if err != nil {
		return err
	}
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	logger, closeLog, err := newLogger(practiceSettings.logLevel, practiceSettings.logFile, interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	pipe := buildPipeline(cfg, generator.New(), nil, nil, logger)
	sess, err := session.New(session.Options{
		Engine:   pipe.engine,
		Adapter:  pipe.adapter,
		Source:   audio.NewPortAudio(cfg.SampleRate, cfg.BlockSize),
		Prompter: openPrompter(cfg.MIDIOut, logger),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !interactive {
		logger.Info("listening", "mode", cfg.Mode.String(), "sample_rate", cfg.SampleRate, "block", cfg.BlockSize)
		if err := sess.Run(ctx); err != nil {
			return fmt.Errorf("practice session failed: %w", err)
		}
		return printSummary(cmd, sess.Summary())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(ctx)
		cancel()
	}()
	program := tea.NewProgram(tui.NewModel(pipe.engine), tea.WithAltScreen(), tea.WithContext(ctx))
	_, uiErr := program.Run()
	cancel()
	if err := <-runErr; err != nil {
		return fmt.Errorf("practice session failed: %w", err)
	}
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", uiErr)
	}
	return printSummary(cmd, sess.Summary())
}

type pipeline struct {
	engine  *engine.Engine
	adapter *pitch.Adapter
	machine *practice.Machine
}

// buildPipeline wires estimator, state machine and engine. A non-nil target
// replaces the first random draw; a nil now uses the wall clock.
func buildPipeline(cfg model.Config, gen *generator.Generator, target *practice.Target, now func() time.Time, logger *slog.Logger) pipeline {
	adapter := pitch.NewAdapter(pitch.YIN, pitch.Params{
		WindowSize: cfg.WindowSize,
		HopSize:    cfg.BlockSize,
		SampleRate: cfg.SampleRate,
		Tolerance:  cfg.Tolerance,
	}, logger)
	pc := practice.DefaultConfig()
	pc.StableFrames = cfg.StableFrames
	pc.ConfidenceThreshold = cfg.ConfidenceThreshold
	pc.StringQuota = cfg.StringQuota
	pc.CelebrateDelay = cfg.CelebrateDelay
	machine := practice.New(pc, cfg.Mode, gen, now)
	if target != nil {
		machine.SetTarget(*target)
	}
	return pipeline{
		engine:  engine.New(cfg, adapter, machine, logger),
		adapter: adapter,
		machine: machine,
	}
}

func openPrompter(port string, logger *slog.Logger) prompt.Prompter {
	if port == "" {
		return prompt.Nop{}
	}
	p, err := prompt.Open(port)
	if err != nil {
		logger.Warn("reference tone disabled", "err", err)
		return prompt.Nop{}
	}
	logger.Info("reference tone enabled", "port", port)
	return p
}

func printSummary(cmd *cobra.Command, sum session.Summary) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Correct %d  Misses %d  Accuracy %.1f%%  %.1f/min  (%s)\n",
		sum.Correct, sum.Misses, sum.Accuracy*100, sum.PerMinute, sum.Duration.Round(time.Second))
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# fretiq configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# mode = %q   # full-fretboard or by-string
# stable-frames = %d          # Consecutive matching blocks for a correct note
# confidence = %.2f          # Minimum pitch confidence (0-1)
# rms-threshold = %.3f      # Minimum block RMS analysed
# quota = %d                  # Hits per pitch class before the next string
# celebrate-ms = %d         # Pause after a correct note

[audio]
# sample-rate = %d        # Capture sample rate in Hz
# block-size = %d           # Samples per audio block
# window-size = %d         # Pitch estimator window
# buffer-size = %d         # Sample ring capacity
# tolerance = %.2f           # Pitch estimator tolerance (0-1]
# midi-out = ""              # MIDI output that sounds each target

[log]
# level = %q             # debug, info, warn, error
# file = ""                  # Log file while the terminal UI runs
`,
		defaultMode,
		defaultStableFrames,
		defaultConfidence,
		defaultRMSThreshold,
		defaultQuota,
		defaultCelebrateMs,
		defaultSampleRate,
		defaultBlockSize,
		defaultWindowSize,
		defaultBufferSize,
		defaultTolerance,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.StableFrames < 1 {
		return fmt.Errorf("--stable-frames must be >= 1")
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return fmt.Errorf("--confidence must be between 0 and 1")
	}
	if cfg.RMSThreshold < 0 {
		return fmt.Errorf("--rms-threshold must be >= 0")
	}
	if cfg.StringQuota < 1 {
		return fmt.Errorf("--quota must be >= 1")
	}
	if cfg.CelebrateDelay < 0 {
		return fmt.Errorf("--celebrate-ms must be >= 0")
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("--sample-rate must be > 0")
	}
	if cfg.BlockSize <= 0 {
		return fmt.Errorf("--block-size must be > 0")
	}
	if cfg.WindowSize <= 0 {
		return fmt.Errorf("--window-size must be > 0")
	}
	if cfg.BufferSize < cfg.WindowSize {
		return fmt.Errorf("--buffer-size must be >= --window-size")
	}
	if cfg.Tolerance <= 0 || cfg.Tolerance > 1 {
		return fmt.Errorf("--tolerance must be in (0, 1]")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
