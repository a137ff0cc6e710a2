package fake

import (
	"math/rand"
	"sync"
	"time"

	"github.com/chriscow/speechstack-go/pkg/ai/vad"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

const (
	// DefaultSpeechProbability is the default probability of speech detection per frame
	DefaultSpeechProbability = 0.3
	// DefaultSeed is the deterministic seed for reproducible testing
	DefaultSeed = 42
)

// FakeVAD is a fake classifier for testing. It either replays a script of
// decisions or draws from a seeded RNG.
type FakeVAD struct {
	mu                sync.Mutex
	speechProbability float32
	rng               *rand.Rand
	script            []bool
	pos               int
	frames            int
	closed            bool
}

// NewFakeVAD creates a new fake VAD provider.
// speechProbability controls how often speech is detected (0.0 to 1.0).
// Uses a deterministic seed for reproducible testing.
func NewFakeVAD(speechProbability float32) *FakeVAD {
	return NewFakeVADWithSeed(speechProbability, DefaultSeed)
}

// NewFakeVADWithSeed creates a new fake VAD provider with a custom seed.
// Use this for tests that need different random sequences.
func NewFakeVADWithSeed(speechProbability float32, seed int64) *FakeVAD {
	if speechProbability <= 0 {
		speechProbability = DefaultSpeechProbability
	}
	return &FakeVAD{
		speechProbability: speechProbability,
		rng:               rand.New(rand.NewSource(seed)),
	}
}

// NewScripted returns a fake that answers with script in order and repeats
// its last entry once the script runs out.
func NewScripted(script ...bool) *FakeVAD {
	return &FakeVAD{script: script}
}

// IsSpeech returns the next scripted or random decision.
func (f *FakeVAD) IsSpeech(rtc.AudioFrame) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false, vad.ErrFatal
	}
	f.frames++
	if f.rng == nil {
		if len(f.script) == 0 {
			return false, nil
		}
		v := f.script[min(f.pos, len(f.script)-1)]
		f.pos++
		return v, nil
	}
	return f.rng.Float32() < f.speechProbability, nil
}

// Frames returns how many frames were classified.
func (f *FakeVAD) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// Capabilities returns the fake VAD capabilities.
func (f *FakeVAD) Capabilities() vad.Capabilities {
	return vad.Capabilities{
		SampleRates: []int{8000, 16000, 32000},
		FrameWidths: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		Sensitivity: f.speechProbability,
	}
}

// Close marks the fake closed. Later calls fail with vad.ErrFatal.
func (f *FakeVAD) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
