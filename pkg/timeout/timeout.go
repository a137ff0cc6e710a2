// Package timeout bounds how long a pipeline activation may stay open.
package timeout

import (
	"log/slog"

	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Config holds the activation bounds in milliseconds.
type Config struct {
	FrameWidth int `yaml:"frame_width"`
	MinActive  int `yaml:"min_active"`
	MaxActive  int `yaml:"max_active"`
}

// DefaultConfig returns a 500ms minimum and 5s maximum activation.
func DefaultConfig() Config {
	return Config{FrameWidth: 20, MinActive: 500, MaxActive: 5000}
}

// ActivationTimeout deactivates the pipeline when speech ends after the
// minimum activation, or unconditionally once the maximum is exceeded.
// Speech ending inside the minimum is ignored so short utterances are not
// cut off.
type ActivationTimeout struct {
	logger       *slog.Logger
	minActive    int
	maxActive    int
	wasSpeech    bool
	activeLength int
}

var _ speech.Stage = (*ActivationTimeout)(nil)

// New creates a timeout stage.
func New(cfg Config, logger *slog.Logger) (*ActivationTimeout, error) {
	if cfg.FrameWidth <= 0 {
		return nil, speech.ConfigError("frame_width", "must be positive")
	}
	if cfg.MinActive < 0 || cfg.MaxActive < cfg.MinActive {
		return nil, speech.ConfigError("timeout", "need 0 <= min_active (%d) <= max_active (%d)", cfg.MinActive, cfg.MaxActive)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivationTimeout{
		logger:    logger,
		minActive: cfg.MinActive / cfg.FrameWidth,
		maxActive: cfg.MaxActive / cfg.FrameWidth,
	}, nil
}

// Name identifies the stage in logs and metrics.
func (a *ActivationTimeout) Name() string { return "timeout" }

// ActiveLength returns the number of frames counted in the current activation.
func (a *ActivationTimeout) ActiveLength() int { return a.activeLength }

// Process counts active frames and deactivates on a speech-to-silence edge
// past the minimum or on exceeding the maximum. Reaching the maximum also
// fires EventTimeout.
func (a *ActivationTimeout) Process(ctx *speech.Context, _ []int16) error {
	vadFall := a.wasSpeech && !ctx.IsSpeech()
	a.wasSpeech = ctx.IsSpeech()

	if !ctx.IsActive() {
		a.activeLength = 0
		return nil
	}
	if a.activeLength > a.minActive {
		expired := a.activeLength > a.maxActive
		if vadFall || expired {
			a.logger.Debug("activation ended",
				slog.Int("frames", a.activeLength),
				slog.Bool("expired", expired))
			a.activeLength = 0
			ctx.SetActive(false)
			// A natural end of speech is not a timeout; listeners that need
			// every end of activation watch EventDeactivate.
			if expired {
				ctx.Event(speech.EventTimeout)
			}
			return nil
		}
	}
	a.activeLength++
	return nil
}

// Reset zeroes the frame counter.
func (a *ActivationTimeout) Reset() error {
	a.activeLength = 0
	return nil
}

// Close zeroes the frame counter.
func (a *ActivationTimeout) Close() error {
	return a.Reset()
}
