package vad

import (
	"fmt"
	"time"

	aivad "github.com/chriscow/speechstack-go/pkg/ai/vad"
	"github.com/chriscow/speechstack-go/pkg/dsp"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

// Classifier aggressiveness modes, from least to most likely to reject
// borderline frames as silence.
const (
	ModeQuality        = "quality"
	ModeLowBitrate     = "low_bitrate"
	ModeAggressive     = "aggressive"
	ModeVeryAggressive = "very_aggressive"
)

// modeMargins is the level above the noise floor, in dB, a frame must reach
// to count as speech.
var modeMargins = map[string]float64{
	ModeQuality:        6,
	ModeLowBitrate:     9,
	ModeAggressive:     12,
	ModeVeryAggressive: 15,
}

// Energy is a level-based classifier. It tracks an adaptive noise floor and
// reports speech when a frame's level exceeds the floor by the mode margin
// and an absolute minimum.
type Energy struct {
	margin  float64
	floorDB float64
	minDB   float64
}

var _ aivad.Classifier = (*Energy)(nil)

// NewEnergy creates an energy classifier for mode.
func NewEnergy(mode string) (*Energy, error) {
	margin, ok := modeMargins[mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown vad mode %q", aivad.ErrFatal, mode)
	}
	return &Energy{margin: margin, floorDB: -60, minDB: -50}, nil
}

// IsSpeech compares the frame level against the noise floor, then updates
// the floor: quickly downward, slowly upward.
func (e *Energy) IsSpeech(frame rtc.AudioFrame) (bool, error) {
	level := dsp.DBFS(dsp.RMS(frame.Samples()))
	speech := level > e.minDB && level > e.floorDB+e.margin

	switch {
	case level < e.floorDB:
		e.floorDB = 0.5*e.floorDB + 0.5*max(level, -90)
	case !speech:
		e.floorDB = 0.95*e.floorDB + 0.05*level
	}
	return speech, nil
}

// NoiseFloor returns the current floor estimate in dBFS.
func (e *Energy) NoiseFloor() float64 { return e.floorDB }

// Capabilities reports the supported formats.
func (e *Energy) Capabilities() aivad.Capabilities {
	return aivad.Capabilities{
		SampleRates: []int{8000, 16000, 32000},
		FrameWidths: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		Sensitivity: float32(1 - e.margin/20),
	}
}

// Close does nothing.
func (e *Energy) Close() error { return nil }
