// Package vad provides the voice activity stages: a debounced detector that
// maintains Context.IsSpeech and a trigger that activates the pipeline at
// the start of speech.
package vad

import (
	"fmt"
	"log/slog"
	"time"

	aivad "github.com/chriscow/speechstack-go/pkg/ai/vad"
	"github.com/chriscow/speechstack-go/pkg/rtc"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Config holds the detector tunables. Delays are in milliseconds.
type Config struct {
	SampleRate int    `yaml:"sample_rate"`
	FrameWidth int    `yaml:"frame_width"`
	RiseDelay  int    `yaml:"rise_delay"`
	FallDelay  int    `yaml:"fall_delay"`
	Mode       string `yaml:"mode"`
	Provider   string `yaml:"provider"`
}

// DefaultConfig returns the stock detector settings.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FrameWidth: 20,
		RiseDelay:  0,
		FallDelay:  500,
		Mode:       ModeVeryAggressive,
		Provider:   "energy",
	}
}

// Detector debounces a per-frame classifier into Context.IsSpeech. The flag
// turns on after RiseDelay of consecutive speech frames and off after
// FallDelay of consecutive silence frames.
type Detector struct {
	classifier aivad.Classifier
	logger     *slog.Logger
	sampleRate int
	frameSize  int
	riseLength int
	fallLength int

	runValue  bool
	runLength int
}

var _ speech.Stage = (*Detector)(nil)

// NewDetector wraps classifier. The detector owns it and closes it in Close.
func NewDetector(cfg Config, classifier aivad.Classifier, logger *slog.Logger) (*Detector, error) {
	if err := speech.ValidateFormat(cfg.SampleRate, cfg.FrameWidth); err != nil {
		return nil, err
	}
	if cfg.RiseDelay < 0 || cfg.FallDelay < 0 {
		return nil, speech.ConfigError("vad", "negative delay")
	}
	if !aivad.Supports(classifier.Capabilities(), cfg.SampleRate, time.Duration(cfg.FrameWidth)*time.Millisecond) {
		return nil, speech.ConfigError("vad", "classifier does not support %dHz/%dms", cfg.SampleRate, cfg.FrameWidth)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		classifier: classifier,
		logger:     logger,
		sampleRate: cfg.SampleRate,
		frameSize:  speech.FrameSize(cfg.SampleRate, cfg.FrameWidth),
		riseLength: cfg.RiseDelay / cfg.FrameWidth,
		fallLength: cfg.FallDelay / cfg.FrameWidth,
	}, nil
}

// Name identifies the stage in logs and metrics.
func (d *Detector) Name() string { return "vad" }

// Process classifies frame and updates ctx.IsSpeech once a run of identical
// decisions reaches the rise or fall length.
func (d *Detector) Process(ctx *speech.Context, frame []int16) error {
	if err := speech.CheckFrame(frame, d.frameSize); err != nil {
		return err
	}
	raw, err := d.classifier.IsSpeech(rtc.FromSamples(frame, d.sampleRate, 0))
	if err != nil {
		return fmt.Errorf("vad classifier: %w", err)
	}

	if raw == d.runValue {
		d.runLength++
	} else {
		d.runValue = raw
		d.runLength = 1
	}

	if d.runValue != ctx.IsSpeech() {
		if d.runValue && d.runLength >= d.riseLength {
			ctx.SetSpeech(true)
			d.logger.Debug("speech start")
		}
		if !d.runValue && d.runLength >= d.fallLength {
			ctx.SetSpeech(false)
			d.logger.Debug("speech end")
		}
	}
	return nil
}

// Reset clears the current run, and the classifier's state when it keeps any.
func (d *Detector) Reset() error {
	d.runValue = false
	d.runLength = 0
	if r, ok := d.classifier.(interface{ Reset() }); ok {
		r.Reset()
	}
	return nil
}

// Close releases the classifier.
func (d *Detector) Close() error {
	return d.classifier.Close()
}
