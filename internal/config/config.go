// Package config defines the YAML configuration of the speechstack CLI.
package config

import (
	"log/slog"

	"github.com/chriscow/speechstack-go/pkg/agc"
	"github.com/chriscow/speechstack-go/pkg/asr"
	"github.com/chriscow/speechstack-go/pkg/keyword"
	"github.com/chriscow/speechstack-go/pkg/nsx"
	"github.com/chriscow/speechstack-go/pkg/profile"
	"github.com/chriscow/speechstack-go/pkg/timeout"
	"github.com/chriscow/speechstack-go/pkg/vad"
	"github.com/chriscow/speechstack-go/pkg/wakeword"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// LogFormat selects the slog handler.
type LogFormat string

const (
	FormatJSON    LogFormat = "json"
	FormatConsole LogFormat = "console"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == FormatJSON || f == FormatConsole
}

// Config is the top-level configuration.
type Config struct {
	Audio    AudioConfig     `yaml:"audio"`
	Log      LogConfig       `yaml:"log"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Models   ModelsConfig    `yaml:"models"`
	Profile  string          `yaml:"profile"`
	AGC      agc.Config      `yaml:"agc"`
	NSX      nsx.Config      `yaml:"nsx"`
	VAD      VADConfig       `yaml:"vad"`
	Wakeword wakeword.Config `yaml:"wakeword"`
	Keyword  keyword.Config  `yaml:"keyword"`
	Timeout  timeout.Config  `yaml:"timeout"`
	ASR      ASRConfig       `yaml:"asr"`
}

// AudioConfig is the frame format shared by every stage. It overrides any
// sample_rate or frame_width set in a stage block.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	FrameWidth int `yaml:"frame_width"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ModelsConfig configures the ONNX runtime.
type ModelsConfig struct {
	LibPath        string `yaml:"lib_path"`
	IntraOpThreads int    `yaml:"intra_op_threads"`
}

// VADConfig is the detector configuration plus options for the classifier
// plugin named by provider.
type VADConfig struct {
	vad.Config `yaml:",inline"`
	Options    map[string]any `yaml:"options"`
}

// ASRConfig is the recognizer configuration plus options for the STT
// plugin named by provider.
type ASRConfig struct {
	asr.Config `yaml:",inline"`
	Options    map[string]any `yaml:"options"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Audio:    AudioConfig{SampleRate: 16000, FrameWidth: 20},
		Log:      LogConfig{Level: LogInfo, Format: FormatJSON},
		Profile:  profile.Wakeword,
		AGC:      agc.DefaultConfig(),
		NSX:      nsx.DefaultConfig(),
		VAD:      VADConfig{Config: vad.DefaultConfig()},
		Wakeword: wakeword.DefaultConfig(),
		Keyword:  keyword.DefaultConfig(),
		Timeout:  timeout.DefaultConfig(),
		ASR:      ASRConfig{Config: asr.DefaultConfig()},
	}
}

// applyAudio copies the shared frame format into every stage block.
func (c *Config) applyAudio() {
	sr, fw := c.Audio.SampleRate, c.Audio.FrameWidth
	c.AGC.SampleRate, c.AGC.FrameWidth = sr, fw
	c.NSX.SampleRate = sr
	c.VAD.SampleRate, c.VAD.FrameWidth = sr, fw
	c.Wakeword.SampleRate, c.Wakeword.FrameWidth = sr, fw
	c.Keyword.SampleRate, c.Keyword.FrameWidth = sr, fw
	c.Timeout.FrameWidth = fw
	c.ASR.SampleRate, c.ASR.FrameWidth = sr, fw
}

// ProfileConfig returns the stage configuration for profile.Build.
func (c *Config) ProfileConfig() profile.Config {
	c.applyAudio()
	return profile.Config{
		Name:       c.Profile,
		AGC:        c.AGC,
		NSX:        c.NSX,
		VAD:        c.VAD.Config,
		Wakeword:   c.Wakeword,
		Keyword:    c.Keyword,
		Timeout:    c.Timeout,
		ASR:        c.ASR.Config,
		VADOptions: c.VAD.Options,
		STTOptions: c.ASR.Options,
	}
}
