package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a construction-time configuration error. These are
	// never recoverable: fix the configuration and rebuild the stage.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidFrame marks an input frame rejected by a stage because of its
	// length or format. The pipeline does not attempt to correct it.
	ErrInvalidFrame = errors.New("invalid frame")
)

// ConfigError wraps ErrInvalidConfig with the offending field.
func ConfigError(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

// FrameError wraps ErrInvalidFrame with a description of the mismatch.
func FrameError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFrame, fmt.Sprintf(format, args...))
}

// SupportedSampleRates lists the sample rates accepted by the signal stages.
var SupportedSampleRates = []int{8000, 16000, 32000}

// SupportedFrameWidths lists the frame widths (ms) accepted by the signal stages.
var SupportedFrameWidths = []int{10, 20}

// ValidateFormat checks sampleRate and frameWidth against the supported sets.
func ValidateFormat(sampleRate, frameWidth int) error {
	if !contains(SupportedSampleRates, sampleRate) {
		return ConfigError("sample_rate", "%d not in %v", sampleRate, SupportedSampleRates)
	}
	if !contains(SupportedFrameWidths, frameWidth) {
		return ConfigError("frame_width", "%d not in %v", frameWidth, SupportedFrameWidths)
	}
	return nil
}

// FrameSize returns the number of samples in one frame.
func FrameSize(sampleRate, frameWidth int) int {
	return sampleRate * frameWidth / 1000
}

// CheckFrame returns an ErrInvalidFrame error unless frame holds exactly want samples.
func CheckFrame(frame []int16, want int) error {
	if len(frame) != want {
		return FrameError("got %d samples, want %d", len(frame), want)
	}
	return nil
}

func contains(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
