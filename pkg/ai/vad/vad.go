// Package vad defines the per-frame voice activity classifier consumed by the
// pipeline's VAD stage. Providers answer one question per frame: does it
// contain speech? Debouncing is the stage's job.
package vad

import (
	"time"

	"github.com/chriscow/speechstack-go/pkg/ai"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

// VAD-specific error variables for backward compatibility
var (
	// ErrRecoverable indicates a temporary VAD failure that may succeed if retried.
	// Examples: processing overload, temporary resource shortage.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent VAD failure that will not succeed if retried.
	// Examples: unsupported audio format, invalid configuration.
	ErrFatal = ai.ErrFatal
)

// Capabilities describes the capabilities of a VAD provider.
type Capabilities struct {
	SampleRates []int
	FrameWidths []time.Duration
	Sensitivity float32 // 0.0 to 1.0
}

// Classifier is the interface for voice activity detection providers.
type Classifier interface {
	// IsSpeech classifies a single mono frame.
	IsSpeech(frame rtc.AudioFrame) (bool, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() Capabilities

	// Close releases provider resources.
	Close() error
}

// Supports reports whether caps accepts the given format. Empty lists accept
// anything.
func Supports(caps Capabilities, sampleRate int, frameWidth time.Duration) bool {
	ok := len(caps.SampleRates) == 0
	for _, r := range caps.SampleRates {
		if r == sampleRate {
			ok = true
		}
	}
	if !ok {
		return false
	}
	if len(caps.FrameWidths) == 0 {
		return true
	}
	for _, w := range caps.FrameWidths {
		if w == frameWidth {
			return true
		}
	}
	return false
}
