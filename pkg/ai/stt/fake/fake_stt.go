package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chriscow/speechstack-go/pkg/ai/stt"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

const (
	// InterimResultFrameInterval controls how often interim results are sent
	InterimResultFrameInterval = 10
	// DefaultTranscript is used when no transcript is provided
	DefaultTranscript = "This is a fake transcript from the fake STT provider."
	// DefaultConfidence is attached to every result
	DefaultConfidence = 0.9
)

// FakeSTT is a fake STT implementation for testing.
type FakeSTT struct {
	transcript string

	mu         sync.Mutex
	streams    int
	failures   []error
	lastCfg    stt.StreamConfig
	lastStream *FakeSTTStream
}

// NewFakeSTT creates a new fake STT provider with a fixed transcript.
func NewFakeSTT(transcript string) *FakeSTT {
	if transcript == "" {
		transcript = DefaultTranscript
	}
	return &FakeSTT{transcript: transcript}
}

// FailNext makes the next len(errs) NewStream calls fail with errs in order.
func (f *FakeSTT) FailNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

// NewStream creates a new fake STT stream.
func (f *FakeSTT) NewStream(ctx context.Context, cfg stt.StreamConfig) (stt.STTStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	f.streams++
	f.lastCfg = cfg
	f.lastStream = &FakeSTTStream{
		transcript: f.transcript,
		events:     make(chan stt.SpeechEvent, 64),
		ctx:        ctx,
	}
	return f.lastStream, nil
}

// Streams returns how many streams were opened.
func (f *FakeSTT) Streams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams
}

// LastStream returns the most recently opened stream.
func (f *FakeSTT) LastStream() *FakeSTTStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastStream
}

// LastConfig returns the config of the most recent stream.
func (f *FakeSTT) LastConfig() stt.StreamConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCfg
}

// Capabilities returns the fake STT capabilities.
func (f *FakeSTT) Capabilities() stt.STTCapabilities {
	return stt.STTCapabilities{
		Streaming:          true,
		InterimResults:     true,
		SupportedLanguages: []string{"en-US", "en-GB", "es-ES"},
		SampleRates:        []int{8000, 16000, 32000},
	}
}

// FakeSTTStream is a fake STT stream implementation.
type FakeSTTStream struct {
	mu         sync.Mutex
	transcript string
	events     chan stt.SpeechEvent
	ctx        context.Context
	frameCount int
	closed     bool
}

// Push processes an audio frame (fake implementation just counts frames).
func (s *FakeSTTStream) Push(frame rtc.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream is closed")
	}

	s.frameCount++

	// Send interim result every InterimResultFrameInterval frames
	if s.frameCount%InterimResultFrameInterval == 0 {
		select {
		case s.events <- stt.SpeechEvent{
			Type:       stt.SpeechEventInterim,
			Text:       s.transcript[:min(len(s.transcript), s.frameCount/2)],
			Confidence: DefaultConfidence / 2,
			IsFinal:    false,
			Language:   "en-US",
			Timestamp:  time.Now().UnixMilli(),
		}:
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
			// drop interim results nobody is reading
		}
	}

	return nil
}

// Frames returns how many frames were pushed.
func (s *FakeSTTStream) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// Events returns the events channel.
func (s *FakeSTTStream) Events() <-chan stt.SpeechEvent {
	return s.events
}

// CloseSend closes the stream and sends final result.
func (s *FakeSTTStream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.closed = true
	defer close(s.events)

	// Send final result
	select {
	case s.events <- stt.SpeechEvent{
		Type:       stt.SpeechEventFinal,
		Text:       s.transcript,
		Confidence: DefaultConfidence,
		IsFinal:    true,
		Language:   "en-US",
		Timestamp:  time.Now().UnixMilli(),
	}:
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	return nil
}
