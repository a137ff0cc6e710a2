package fake

import (
	"errors"
	"testing"
	"time"

	"github.com/chriscow/speechstack-go/pkg/ai/vad"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

func TestFakeVADCapabilities(t *testing.T) {
	provider := NewFakeVAD(0.5)
	caps := provider.Capabilities()

	if len(caps.SampleRates) == 0 {
		t.Error("Expected SampleRates to be non-empty")
	}
	if !vad.Supports(caps, 16000, 20*time.Millisecond) {
		t.Error("Expected 16kHz/20ms to be supported")
	}
	if vad.Supports(caps, 44100, 20*time.Millisecond) {
		t.Error("Expected 44.1kHz to be rejected")
	}
}

func TestFakeVADDeterministic(t *testing.T) {
	// Test that same seed produces same results
	provider1 := NewFakeVADWithSeed(0.5, 123)
	provider2 := NewFakeVADWithSeed(0.5, 123)
	frame := rtc.FromSamples(make([]int16, 320), 16000, 0)

	for i := 0; i < 50; i++ {
		a, err := provider1.IsSpeech(frame)
		if err != nil {
			t.Fatalf("provider1.IsSpeech() error = %v", err)
		}
		b, err := provider2.IsSpeech(frame)
		if err != nil {
			t.Fatalf("provider2.IsSpeech() error = %v", err)
		}
		if a != b {
			t.Fatalf("frame %d: decisions differ with the same seed", i)
		}
	}
	if provider1.Frames() != 50 {
		t.Errorf("Frames() = %d, want 50", provider1.Frames())
	}
}

func TestFakeVADScripted(t *testing.T) {
	provider := NewScripted(true, false, true)
	frame := rtc.FromSamples(make([]int16, 160), 16000, 0)

	want := []bool{true, false, true, true, true}
	for i, w := range want {
		got, err := provider.IsSpeech(frame)
		if err != nil {
			t.Fatalf("IsSpeech() error = %v", err)
		}
		if got != w {
			t.Errorf("frame %d: IsSpeech() = %v, want %v", i, got, w)
		}
	}
}

func TestFakeVADClosed(t *testing.T) {
	provider := NewScripted(true)
	if err := provider.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_, err := provider.IsSpeech(rtc.AudioFrame{})
	if !errors.Is(err, vad.ErrFatal) {
		t.Errorf("IsSpeech() after Close error = %v, want ErrFatal", err)
	}
}
