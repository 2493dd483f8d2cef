package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/fretiq/internal/config"
	"github.com/verte-zerg/fretiq/internal/model"
	"github.com/verte-zerg/fretiq/internal/note"
)

func validTestConfig() model.Config {
	return model.Config{
		SampleRate:          44100,
		BlockSize:           512,
		WindowSize:          1024,
		BufferSize:          2048,
		Tolerance:           0.8,
		RMSThreshold:        0.02,
		ConfidenceThreshold: 0.8,
		StableFrames:        5,
		StringQuota:         2,
		CelebrateDelay:      500 * time.Millisecond,
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(validTestConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cases := map[string]func(*model.Config){
		"--stable-frames": func(c *model.Config) { c.StableFrames = 0 },
		"--confidence":    func(c *model.Config) { c.ConfidenceThreshold = 1.5 },
		"--quota":         func(c *model.Config) { c.StringQuota = 0 },
		"--buffer-size":   func(c *model.Config) { c.BufferSize = 512 },
		"--tolerance":     func(c *model.Config) { c.Tolerance = 0 },
		"--block-size":    func(c *model.Config) { c.BlockSize = 0 },
	}
	for flag, mutate := range cases {
		cfg := validTestConfig()
		mutate(&cfg)
		err := validateConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), flag) {
			t.Fatalf("expected %s error, got %v", flag, err)
		}
	}
}

func TestParseTarget(t *testing.T) {
	target, err := parseTarget("A2", model.ModeFullFretboard)
	if err != nil || target == nil || target.MIDI != 45 {
		t.Fatalf("unexpected target %+v, err %v", target, err)
	}
	target, err = parseTarget("C#", model.ModeByString)
	if err != nil || target.MIDI != note.NoNote || target.PitchClass != 1 || target.String != 0 {
		t.Fatalf("unexpected class target %+v, err %v", target, err)
	}
	if _, err := parseTarget("C#", model.ModeFullFretboard); err == nil {
		t.Fatalf("expected error for a pitch class in full-fretboard mode")
	}
	if target, err := parseTarget("", model.ModeFullFretboard); err != nil || target != nil {
		t.Fatalf("expected no target")
	}
}

func TestDefaultConfigTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := uncomment(defaultConfigTemplate())
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template does not load: %v\n%s", err, body)
	}
	if cfg.Practice.Mode == nil || *cfg.Practice.Mode != defaultMode {
		t.Fatalf("unexpected mode %v", cfg.Practice.Mode)
	}
	if cfg.Audio.BlockSize == nil || *cfg.Audio.BlockSize != defaultBlockSize {
		t.Fatalf("unexpected block size %v", cfg.Audio.BlockSize)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := "[practice]\nmode = \"by-string\"\nquota = 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := &cobra.Command{Use: "test"}
	s := &settings{}
	bindPracticeFlags(cmd, s)
	if err := cmd.Flags().Parse([]string{"--quota", "3"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := resolveConfig(cmd, s)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Mode != model.ModeByString {
		t.Fatalf("expected mode from config file")
	}
	if cfg.StringQuota != 3 {
		t.Fatalf("expected flag to win, got quota %d", cfg.StringQuota)
	}
}

func TestAnalyzeJudgesRecording(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "a3.wav")
	writeSineWAV(t, path, note.Frequency(57), 44100, time.Second)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"analyze", path, "--target", "A3", "--seed", "3", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("analyze: %v\n%s", err, out.String())
	}
	text := out.String()
	for _, want := range []string{"correct", "Target: A3", "Correct "} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func writeSineWAV(t *testing.T, path string, hz float64, rate int, d time.Duration) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	n := int(d.Seconds() * float64(rate))
	data := make([]int, n)
	for i := range data {
		data[i] = int(16000 * math.Sin(2*math.Pi*hz*float64(i)/float64(rate)))
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
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

// uncomment enables every "# key = value" line of the template.
func uncomment(template string) string {
	lines := strings.Split(template, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			lines[i] = strings.TrimPrefix(line, "# ")
		}
	}
	return strings.Join(lines, "\n")
}

func TestBucketMaxKeepsPeaks(t *testing.T) {
	got := bucketMax([]float64{1, 5, 2, 2, 9, 0}, 3)
	if len(got) != 3 || got[0] != 5 || got[1] != 2 || got[2] != 9 {
		t.Fatalf("unexpected buckets %v", got)
	}
	short := []float64{1, 2}
	if got := bucketMax(short, 3); len(got) != 2 {
		t.Fatalf("expected short input unchanged, got %v", got)
	}
}
