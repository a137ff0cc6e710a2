// Package asr adapts streaming speech-to-text providers to the pipeline
// stage contract.
package asr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chriscow/speechstack-go/pkg/ai"
	"github.com/chriscow/speechstack-go/pkg/ai/stt"
	"github.com/chriscow/speechstack-go/pkg/rtc"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Config holds the recognizer tunables.
type Config struct {
	SampleRate int    `yaml:"sample_rate"`
	FrameWidth int    `yaml:"frame_width"`
	Language   string `yaml:"language"`
	Limit      int    `yaml:"limit"`
	// IdleTimeout is how long, in ms, to wait for a final result after the
	// activation ends before the stream is abandoned.
	IdleTimeout int    `yaml:"idle_timeout"`
	Provider    string `yaml:"provider"`
}

// DefaultConfig returns English recognition at 16kHz with a 5s idle timeout.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		FrameWidth:  20,
		Language:    "en",
		Limit:       10,
		IdleTimeout: 5000,
		Provider:    "fake",
	}
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) { r.logger = logger }
}

// WithRetry sets the retry policy for opening streams.
func WithRetry(cfg ai.RetryConfig) Option {
	return func(r *Recognizer) { r.retry = cfg }
}

// Recognizer streams audio to an STT provider while the pipeline is active.
//
// On the activation rising edge it opens a stream, then pushes every active
// frame and drains results without blocking. When the activation ends it
// half-closes the stream and keeps draining on later frames until the final
// result arrives or the idle timeout passes.
type Recognizer struct {
	provider  stt.STT
	cfg       Config
	logger    *slog.Logger
	retry     ai.RetryConfig
	frameSize int
	idleMax   int

	base   context.Context
	cancel context.CancelFunc

	stream       stt.STTStream
	streamCancel context.CancelFunc
	active       bool
	idle         int
	frameNum     int
}

var _ speech.Stage = (*Recognizer)(nil)

// New creates a recognizer for provider.
func New(cfg Config, provider stt.STT, opts ...Option) (*Recognizer, error) {
	if err := speech.ValidateFormat(cfg.SampleRate, cfg.FrameWidth); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout < 0 {
		return nil, speech.ConfigError("idle_timeout", "must not be negative")
	}
	base, cancel := context.WithCancel(context.Background())
	r := &Recognizer{
		provider:  provider,
		cfg:       cfg,
		logger:    slog.Default(),
		retry:     ai.DefaultRetryConfig,
		frameSize: speech.FrameSize(cfg.SampleRate, cfg.FrameWidth),
		idleMax:   cfg.IdleTimeout / cfg.FrameWidth,
		base:      base,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name identifies the stage in logs and metrics.
func (r *Recognizer) Name() string { return "asr" }

// Process drives the stream state machine for one frame.
func (r *Recognizer) Process(ctx *speech.Context, frame []int16) error {
	if err := speech.CheckFrame(frame, r.frameSize); err != nil {
		return err
	}
	r.frameNum++

	switch {
	case ctx.IsActive() && !r.active:
		if err := r.begin(); err != nil {
			return err
		}
		r.logger.Debug("ready for speech")
		return r.send(frame)
	case ctx.IsActive():
		if err := r.send(frame); err != nil {
			return err
		}
		r.receive(ctx)
	case r.active:
		r.logger.Debug("end speech")
		return r.commit()
	case r.stream != nil:
		r.receive(ctx)
		if r.stream == nil {
			return nil
		}
		r.idle++
		if r.idle > r.idleMax {
			r.logger.Warn("no final result before idle timeout", slog.Int("frames", r.idle))
			r.drop()
			ctx.Event(speech.EventTimeout)
		}
	}
	return nil
}

func (r *Recognizer) begin() error {
	if r.stream != nil {
		r.logger.Debug("abandoning previous stream")
		r.drop()
	}
	streamCtx, cancel := context.WithCancel(r.base)
	stream, err := ai.Retry(streamCtx, r.retry, r.logger, "STT stream creation",
		func(ctx context.Context) (stt.STTStream, error) {
			return r.provider.NewStream(ctx, stt.StreamConfig{
				SampleRate:  r.cfg.SampleRate,
				NumChannels: 1,
				Lang:        r.cfg.Language,
				MaxRetry:    r.retry.MaxRetries,
				Limit:       r.cfg.Limit,
			})
		})
	if err != nil {
		cancel()
		return fmt.Errorf("open stream: %w", err)
	}
	r.stream = stream
	r.streamCancel = cancel
	r.active = true
	r.idle = 0
	return nil
}

func (r *Recognizer) send(frame []int16) error {
	if r.stream == nil {
		return nil
	}
	ts := time.Duration(r.frameNum) * time.Duration(r.cfg.FrameWidth) * time.Millisecond
	if err := r.stream.Push(rtc.FromSamples(frame, r.cfg.SampleRate, ts)); err != nil {
		return fmt.Errorf("push frame: %w", err)
	}
	return nil
}

func (r *Recognizer) commit() error {
	r.active = false
	if r.stream == nil {
		return nil
	}
	if err := r.stream.CloseSend(); err != nil {
		r.drop()
		return fmt.Errorf("close send: %w", err)
	}
	return nil
}

// receive applies every pending event without blocking. A final result, an
// error, or a closed channel ends the stream.
func (r *Recognizer) receive(ctx *speech.Context) {
	for r.stream != nil {
		select {
		case ev, ok := <-r.stream.Events():
			if !ok {
				r.drop()
				return
			}
			r.handle(ctx, ev)
		default:
			return
		}
	}
}

func (r *Recognizer) handle(ctx *speech.Context, ev stt.SpeechEvent) {
	switch ev.Type {
	case stt.SpeechEventInterim:
		ctx.SetTranscript(ev.Text)
		ctx.SetConfidence(ev.Confidence)
		if ev.Text != "" {
			ctx.Event(speech.EventPartialRecognize)
		}
	case stt.SpeechEventFinal:
		ctx.SetTranscript(ev.Text)
		ctx.SetConfidence(ev.Confidence)
		r.drop()
		if ev.Text != "" {
			r.logger.Debug("recognize event")
			ctx.Event(speech.EventRecognize)
		} else {
			r.logger.Debug("timeout event")
			ctx.Event(speech.EventTimeout)
		}
	case stt.SpeechEventError:
		r.logger.Error("recognition failed",
			slog.Any("error", ev.Error),
			slog.String("class", ai.Classify(ev.Error)))
		r.drop()
		ctx.SetErr(ev.Error)
		ctx.Event(speech.EventError)
	}
}

// Reset abandons any open stream.
func (r *Recognizer) Reset() error {
	var err error
	if r.active && r.stream != nil {
		err = r.stream.CloseSend()
	}
	r.drop()
	r.active = false
	r.idle = 0
	return err
}

func (r *Recognizer) drop() {
	if r.streamCancel != nil {
		r.streamCancel()
		r.streamCancel = nil
	}
	r.stream = nil
}

// Close abandons any open stream and cancels in-flight stream setup.
func (r *Recognizer) Close() error {
	err := r.Reset()
	r.cancel()
	return err
}
