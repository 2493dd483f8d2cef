// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Audio    AudioConfig    `toml:"audio"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps judging settings. Nil means unset.
type PracticeConfig struct {
	Mode         *string  `toml:"mode"`
	StableFrames *int     `toml:"stable-frames"`
	Confidence   *float64 `toml:"confidence"`
	RMSThreshold *float64 `toml:"rms-threshold"`
	StringQuota  *int     `toml:"quota"`
	CelebrateMs  *int     `toml:"celebrate-ms"`
}

// AudioConfig maps capture and estimator settings.
type AudioConfig struct {
	SampleRate *int     `toml:"sample-rate"`
	BlockSize  *int     `toml:"block-size"`
	WindowSize *int     `toml:"window-size"`
	BufferSize *int     `toml:"buffer-size"`
	Tolerance  *float64 `toml:"tolerance"`
	MIDIOut    *string  `toml:"midi-out"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
