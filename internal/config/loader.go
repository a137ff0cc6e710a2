package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/chriscow/speechstack-go/pkg/plugin"
	"github.com/chriscow/speechstack-go/pkg/profile"
	"github.com/chriscow/speechstack-go/pkg/speech"
	"github.com/chriscow/speechstack-go/pkg/vad"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads YAML from r over [Default] without validating, so callers can
// apply overrides first. An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

var vadModes = []string{vad.ModeQuality, vad.ModeLowBitrate, vad.ModeAggressive, vad.ModeVeryAggressive}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error
	cfg.applyAudio()

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.Format != "" && !cfg.Log.Format.IsValid() {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: json, console", cfg.Log.Format))
	}
	if err := speech.ValidateFormat(cfg.Audio.SampleRate, cfg.Audio.FrameWidth); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if cfg.Models.IntraOpThreads < 0 {
		errs = append(errs, fmt.Errorf("models.intra_op_threads must not be negative"))
	}

	stages, err := profile.Stages(cfg.Profile)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("profile: %w", err))...)
	}

	for _, stage := range stages {
		switch stage {
		case profile.StageNSX:
			if cfg.NSX.Policy < 0 || cfg.NSX.Policy > 3 {
				errs = append(errs, fmt.Errorf("nsx.policy %d is out of range [0, 3]", cfg.NSX.Policy))
			}
		case profile.StageAGC:
			if cfg.AGC.TargetLevelDBFS < 0 || cfg.AGC.TargetLevelDBFS > 31 {
				errs = append(errs, fmt.Errorf("agc.target_level_dbfs %d is out of range [0, 31]", cfg.AGC.TargetLevelDBFS))
			}
			if cfg.AGC.CompressionGainDB < 0 || cfg.AGC.CompressionGainDB > 90 {
				errs = append(errs, fmt.Errorf("agc.compression_gain_db %d is out of range [0, 90]", cfg.AGC.CompressionGainDB))
			}
		case profile.StageVAD:
			if cfg.VAD.Provider == "" {
				errs = append(errs, fmt.Errorf("vad.provider is required"))
			}
			if !slices.Contains(vadModes, cfg.VAD.Mode) {
				errs = append(errs, fmt.Errorf("vad.mode %q is invalid; valid values: %v", cfg.VAD.Mode, vadModes))
			}
			if cfg.VAD.RiseDelay < 0 || cfg.VAD.FallDelay < 0 {
				errs = append(errs, fmt.Errorf("vad.rise_delay and vad.fall_delay must not be negative"))
			}
			validateProviderName(plugin.KindVAD, cfg.VAD.Provider)
		case profile.StageWakeword:
			if cfg.Wakeword.ModelDir == "" {
				errs = append(errs, fmt.Errorf("wakeword.model_dir is required for profile %q", cfg.Profile))
			}
			if t := cfg.Wakeword.PosteriorThreshold; t < 0 || t > 1 {
				errs = append(errs, fmt.Errorf("wakeword.posterior_threshold %.2f is out of range [0, 1]", t))
			}
		case profile.StageKeyword:
			if cfg.Keyword.ModelDir == "" {
				errs = append(errs, fmt.Errorf("keyword.model_dir is required for profile %q", cfg.Profile))
			}
			if len(cfg.Keyword.Classes) == 0 {
				errs = append(errs, fmt.Errorf("keyword.classes is required for profile %q", cfg.Profile))
			}
			if t := cfg.Keyword.Threshold; t < 0 || t > 1 {
				errs = append(errs, fmt.Errorf("keyword.posterior_threshold %.2f is out of range [0, 1]", t))
			}
		case profile.StageTimeout:
			if cfg.Timeout.MinActive < 0 || cfg.Timeout.MaxActive < cfg.Timeout.MinActive {
				errs = append(errs, fmt.Errorf("timeout: need 0 <= min_active <= max_active, got %d and %d",
					cfg.Timeout.MinActive, cfg.Timeout.MaxActive))
			}
		case profile.StageASR:
			if cfg.ASR.Provider == "" {
				errs = append(errs, fmt.Errorf("asr.provider is required for profile %q", cfg.Profile))
			}
			if cfg.ASR.IdleTimeout < 0 {
				errs = append(errs, fmt.Errorf("asr.idle_timeout must not be negative"))
			}
			validateProviderName(plugin.KindSTT, cfg.ASR.Provider)
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is not registered for kind.
// Registration happens in init(), so the result depends on which plugin
// packages the binary links.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if _, ok := plugin.Lookup(kind, name); ok {
		return
	}
	var known []string
	for _, p := range plugin.List(kind) {
		known = append(known, p.Name)
	}
	slog.Warn("unknown provider name; may be a typo or a plugin not linked into this binary",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
