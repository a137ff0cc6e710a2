// Package nsx implements a noise suppression stage that attenuates audio
// near the estimated noise floor.
package nsx

import (
	"math"

	"github.com/chriscow/speechstack-go/pkg/dsp"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Suppression policies.
const (
	PolicyMild = iota
	PolicyMedium
	PolicyAggressive
	PolicyVeryAggressive
)

var policyAttenuationDB = [...]float64{6, 10, 15, 20}

// Config holds the suppressor tunables.
type Config struct {
	SampleRate int `yaml:"sample_rate"`
	Policy     int `yaml:"policy"`
}

// DefaultConfig returns medium suppression at 16kHz.
func DefaultConfig() Config {
	return Config{SampleRate: 16000, Policy: PolicyMedium}
}

const (
	// sub-frames within this factor of the floor are treated as noise
	noiseRatio = 2.0
	// floor tracking: fast toward quieter input, slow toward louder noise,
	// and a slow drift while speech is present
	floorFall  = 0.5
	floorRise  = 1.02
	floorDrift = 1.0005
	minFloor   = 1.0
)

// NoiseSuppression processes frames in 10ms sub-frames, attenuating those
// whose level falls within noiseRatio of an adaptive noise floor.
type NoiseSuppression struct {
	subFrame    int
	attenuation float64
	floor       float64
}

var _ speech.Stage = (*NoiseSuppression)(nil)

// New validates cfg and returns a suppressor.
func New(cfg Config) (*NoiseSuppression, error) {
	if err := speech.ValidateFormat(cfg.SampleRate, 10); err != nil {
		return nil, err
	}
	if cfg.Policy < PolicyMild || cfg.Policy > PolicyVeryAggressive {
		return nil, speech.ConfigError("policy", "%d not in [0, 3]", cfg.Policy)
	}
	return &NoiseSuppression{
		subFrame:    speech.FrameSize(cfg.SampleRate, 10),
		attenuation: math.Pow(10, -policyAttenuationDB[cfg.Policy]/20),
	}, nil
}

// Name identifies the stage in logs and metrics.
func (n *NoiseSuppression) Name() string { return "nsx" }

// NoiseFloor returns the current floor estimate as an RMS in PCM units.
func (n *NoiseSuppression) NoiseFloor() float64 { return n.floor }

// Process suppresses frame in place. Its length must be a multiple of 10ms.
func (n *NoiseSuppression) Process(_ *speech.Context, frame []int16) error {
	if len(frame) == 0 || len(frame)%n.subFrame != 0 {
		return speech.FrameError("%d samples is not a multiple of %d", len(frame), n.subFrame)
	}
	for off := 0; off < len(frame); off += n.subFrame {
		n.suppress(frame[off : off+n.subFrame])
	}
	return nil
}

func (n *NoiseSuppression) suppress(sub []int16) {
	level := dsp.RMS(sub)
	switch {
	case n.floor == 0:
		n.floor = max(level, minFloor)
	case level < n.floor:
		n.floor = max(minFloor, floorFall*n.floor+(1-floorFall)*level)
	case level <= n.floor*noiseRatio:
		n.floor = min(level, n.floor*floorRise)
	default:
		n.floor *= floorDrift
	}

	if level > n.floor*noiseRatio {
		return
	}
	for i, s := range sub {
		sub[i] = int16(math.Round(float64(s) * n.attenuation))
	}
}

// Reset forgets the noise floor.
func (n *NoiseSuppression) Reset() error {
	n.floor = 0
	return nil
}

// Close does nothing beyond Reset.
func (n *NoiseSuppression) Close() error { return n.Reset() }
