// Package agc implements a digital automatic gain control stage.
package agc

import (
	"log/slog"
	"math"

	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Config holds the gain control tunables.
type Config struct {
	SampleRate int `yaml:"sample_rate"`
	FrameWidth int `yaml:"frame_width"`
	// TargetLevelDBFS is the target peak level in dB below full scale.
	TargetLevelDBFS int `yaml:"target_level_dbfs"`
	// CompressionGainDB caps the gain applied to quiet input.
	CompressionGainDB int  `yaml:"compression_gain_db"`
	LimitEnable       bool `yaml:"limit_enable"`
}

// DefaultConfig returns a -3 dBFS target with up to 15 dB of gain.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		FrameWidth:        20,
		TargetLevelDBFS:   3,
		CompressionGainDB: 15,
		LimitEnable:       true,
	}
}

const (
	// frames quieter than this hold the current gain
	gateDBFS = -60.0
	// per-frame gain smoothing toward the desired gain
	attack  = 0.5
	release = 0.1
)

// AutomaticGainControl scales each frame toward the target peak level.
type AutomaticGainControl struct {
	cfg       Config
	logger    *slog.Logger
	frameSize int
	maxGain   float64
	limit     float64
	gainDB    float64
}

var _ speech.Stage = (*AutomaticGainControl)(nil)

// New validates cfg and returns a unity-gain stage.
func New(cfg Config, logger *slog.Logger) (*AutomaticGainControl, error) {
	if err := speech.ValidateFormat(cfg.SampleRate, cfg.FrameWidth); err != nil {
		return nil, err
	}
	if cfg.TargetLevelDBFS < 0 || cfg.TargetLevelDBFS > 31 {
		return nil, speech.ConfigError("target_level_dbfs", "%d not in [0, 31]", cfg.TargetLevelDBFS)
	}
	if cfg.CompressionGainDB < 0 || cfg.CompressionGainDB > 90 {
		return nil, speech.ConfigError("compression_gain_db", "%d not in [0, 90]", cfg.CompressionGainDB)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutomaticGainControl{
		cfg:       cfg,
		logger:    logger,
		frameSize: speech.FrameSize(cfg.SampleRate, cfg.FrameWidth),
		maxGain:   float64(cfg.CompressionGainDB),
		limit:     32767 * math.Pow(10, -float64(cfg.TargetLevelDBFS)/20),
	}, nil
}

// Name identifies the stage in logs and metrics.
func (a *AutomaticGainControl) Name() string { return "agc" }

// GainDB returns the gain applied to the last frame.
func (a *AutomaticGainControl) GainDB() float64 { return a.gainDB }

// Process applies gain to frame in place.
func (a *AutomaticGainControl) Process(_ *speech.Context, frame []int16) error {
	if err := speech.CheckFrame(frame, a.frameSize); err != nil {
		return err
	}

	var peak float64
	for _, s := range frame {
		peak = max(peak, math.Abs(float64(s)))
	}
	level := math.Inf(-1)
	if peak > 0 {
		level = 20 * math.Log10(peak/32767)
	}

	if level > gateDBFS {
		desired := max(0, min(a.maxGain, -float64(a.cfg.TargetLevelDBFS)-level))
		rate := release
		if desired < a.gainDB {
			rate = attack
		}
		a.gainDB += rate * (desired - a.gainDB)
	}

	gain := math.Pow(10, a.gainDB/20)
	ceiling := 32767.0
	if a.cfg.LimitEnable {
		ceiling = a.limit
	}
	for i, s := range frame {
		v := float64(s) * gain
		if a.cfg.LimitEnable || gain != 1 {
			v = max(-ceiling, min(ceiling, v))
		}
		frame[i] = int16(math.Round(v))
	}
	return nil
}

// Reset restores unity gain.
func (a *AutomaticGainControl) Reset() error {
	a.gainDB = 0
	return nil
}

// Close restores unity gain.
func (a *AutomaticGainControl) Close() error { return a.Reset() }
