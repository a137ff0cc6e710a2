// Package openai provides a batch speech-to-text provider backed by the
// OpenAI Whisper transcription API.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/speechstack-go/pkg/ai"
	"github.com/chriscow/speechstack-go/pkg/ai/stt"
	"github.com/chriscow/speechstack-go/pkg/audio/wav"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

// minDuration is the shortest clip the API accepts.
const minDuration = 100 * time.Millisecond

// WhisperSTT implements STT using OpenAI's Whisper API. Audio is buffered
// for the whole utterance and transcribed once on CloseSend.
type WhisperSTT struct {
	client   *openai.Client
	model    string
	language string
	logger   *slog.Logger
}

var _ stt.STT = (*WhisperSTT)(nil)

// Config holds configuration for OpenAI STT.
type Config struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`    // Default: whisper-1
	Language string `yaml:"language"` // Default: the stream language
	BaseURL  string `yaml:"base_url"` // Default: the public API
}

// NewWhisperSTT creates a new OpenAI Whisper STT provider.
func NewWhisperSTT(cfg Config) (*WhisperSTT, error) {
	if cfg.APIKey == "" {
		return nil, ai.NewFatalError(nil, "missing api key: OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &WhisperSTT{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		logger:   slog.Default(),
	}, nil
}

// NewStream starts buffering an utterance.
func (w *WhisperSTT) NewStream(ctx context.Context, cfg stt.StreamConfig) (stt.STTStream, error) {
	lang := w.language
	if lang == "" {
		lang = cfg.Lang
	}
	return &whisperStream{
		stt:        w,
		ctx:        ctx,
		sampleRate: cfg.SampleRate,
		lang:       lang,
		events:     make(chan stt.SpeechEvent, 1),
	}, nil
}

// Capabilities returns the STT capabilities.
func (w *WhisperSTT) Capabilities() stt.STTCapabilities {
	return stt.STTCapabilities{
		Streaming:      false,
		InterimResults: false,
		SampleRates:    []int{8000, 16000, 32000},
	}
}

type whisperStream struct {
	stt        *WhisperSTT
	ctx        context.Context
	sampleRate int
	lang       string
	events     chan stt.SpeechEvent

	mu      sync.Mutex
	samples []int16
	closed  bool
}

// Push buffers an audio frame.
func (s *whisperStream) Push(frame rtc.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream is closed")
	}
	s.samples = append(s.samples, frame.Samples()...)
	return nil
}

func (s *whisperStream) Events() <-chan stt.SpeechEvent { return s.events }

// CloseSend starts the transcription of everything pushed so far.
func (s *whisperStream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	go s.transcribe(s.samples)
	s.samples = nil
	return nil
}

func (s *whisperStream) transcribe(samples []int16) {
	defer close(s.events)

	dur := time.Duration(len(samples)) * time.Second / time.Duration(max(s.sampleRate, 1))
	if dur < minDuration {
		s.send(stt.SpeechEvent{Type: stt.SpeechEventFinal, IsFinal: true, Language: s.lang, Timestamp: time.Now().UnixMilli()})
		return
	}

	resp, err := s.stt.client.CreateTranscription(s.ctx, openai.AudioRequest{
		Model:    s.stt.model,
		Language: s.lang,
		Format:   openai.AudioResponseFormatJSON,
		Reader:   bytes.NewReader(wav.Encode(samples, s.sampleRate)),
		FilePath: "audio.wav",
	})
	if err != nil {
		s.stt.logger.Error("Whisper transcription failed", slog.String("error", err.Error()))
		s.send(stt.SpeechEvent{Type: stt.SpeechEventError, Error: classify(err), Timestamp: time.Now().UnixMilli()})
		return
	}

	s.stt.logger.Debug("Whisper transcription result", slog.String("text", resp.Text))
	lang := resp.Language
	if lang == "" {
		lang = s.lang
	}
	s.send(stt.SpeechEvent{
		Type:      stt.SpeechEventFinal,
		Text:      resp.Text,
		IsFinal:   true,
		Language:  lang,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *whisperStream) send(ev stt.SpeechEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// classify maps API failures onto the provider error taxonomy. Client
// errors other than rate limiting are fatal.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return ai.NewFatalError(err, "transcription rejected")
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		code := reqErr.HTTPStatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return ai.NewFatalError(err, "transcription rejected")
		}
	}
	return ai.NewRecoverableError(err, "transcription failed")
}
