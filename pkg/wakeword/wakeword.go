// Package wakeword implements the streaming wakeword trigger stage.
//
// While the pipeline is idle the trigger samples every frame. When voice
// activity is present and the sample window fills, it runs the
// filter/encode/detect cascade and activates the pipeline once the detector's
// posterior exceeds the threshold. A speech-to-silence edge that did not end
// in activation clears all windows and the encoder state.
package wakeword

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/chriscow/speechstack-go/pkg/frontend"
	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Model file names expected in a wakeword model directory.
const (
	FilterFile = "filter.onnx"
	EncodeFile = "encode.onnx"
	DetectFile = "detect.onnx"
)

// Config holds the trigger's tunables.
type Config struct {
	SampleRate         int     `yaml:"sample_rate"`
	FrameWidth         int     `yaml:"frame_width"`
	PreEmphasis        float32 `yaml:"pre_emphasis"`
	FFTWindowType      string  `yaml:"fft_window_type"`
	FFTHopLength       int     `yaml:"fft_hop_length"`
	PosteriorThreshold float32 `yaml:"posterior_threshold"`
	FrameSentinel      float32 `yaml:"frame_sentinel"`
	EncodeSentinel     float32 `yaml:"encode_sentinel"`
	ModelDir           string  `yaml:"model_dir"`
}

// DefaultConfig returns the stock trigger settings.
func DefaultConfig() Config {
	return Config{
		SampleRate:         16000,
		FrameWidth:         20,
		FFTWindowType:      frontend.WindowHann,
		FFTHopLength:       10,
		PosteriorThreshold: 0.5,
		FrameSentinel:      0,
		EncodeSentinel:     -1,
	}
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trigger) { t.logger = logger }
}

// Trigger is the wakeword detection stage.
type Trigger struct {
	cfg       Config
	logger    *slog.Logger
	frameSize int
	front     *frontend.Frontend
	detect    model.Model
	detectIn  model.TensorInfo
	encodeBuf []float32

	wasSpeech    bool
	posteriorMax float32
}

var _ speech.Stage = (*Trigger)(nil)

// New builds a trigger from already loaded models. The trigger owns the
// models and closes them in Close.
func New(cfg Config, filter, encode, detect model.Model, opts ...Option) (*Trigger, error) {
	if err := speech.ValidateFormat(cfg.SampleRate, cfg.FrameWidth); err != nil {
		return nil, err
	}
	dd := detect.Descriptor()
	if err := dd.Expect(1, 1); err != nil {
		return nil, fmt.Errorf("detect model: %w", err)
	}
	front, err := frontend.New(frontend.Config{
		SampleRate:     cfg.SampleRate,
		HopLengthMS:    cfg.FFTHopLength,
		PreEmphasis:    cfg.PreEmphasis,
		WindowType:     cfg.FFTWindowType,
		FrameSentinel:  cfg.FrameSentinel,
		EncodeSentinel: cfg.EncodeSentinel,
	}, filter, encode, dd.Inputs[0])
	if err != nil {
		return nil, err
	}

	t := &Trigger{
		cfg:       cfg,
		logger:    slog.Default(),
		frameSize: speech.FrameSize(cfg.SampleRate, cfg.FrameWidth),
		front:     front,
		detect:    detect,
		detectIn:  dd.Inputs[0],
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Load opens the three models from cfg.ModelDir and builds a trigger. If
// rec is non-nil every model call reports its latency.
func Load(cfg Config, loader model.Loader, rec model.InferenceRecorder, opts ...Option) (*Trigger, error) {
	if cfg.ModelDir == "" {
		return nil, speech.ConfigError("model_dir", "required")
	}
	var loaded []model.Model
	open := func(file string) (model.Model, error) {
		m, err := loader.Load(filepath.Join(cfg.ModelDir, file))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		loaded = append(loaded, m)
		return model.Instrument(m, "wakeword."+file, rec), nil
	}
	fail := func(err error) (*Trigger, error) {
		for _, m := range loaded {
			m.Close()
		}
		return nil, err
	}

	filter, err := open(FilterFile)
	if err != nil {
		return fail(err)
	}
	encode, err := open(EncodeFile)
	if err != nil {
		return fail(err)
	}
	detect, err := open(DetectFile)
	if err != nil {
		return fail(err)
	}
	t, err := New(cfg, filter, encode, detect, opts...)
	if err != nil {
		return fail(err)
	}
	return t, nil
}

// Name identifies the stage in logs and metrics.
func (t *Trigger) Name() string { return "wakeword" }

// PosteriorMax returns the highest posterior seen since the last reset.
func (t *Trigger) PosteriorMax() float32 { return t.posteriorMax }

// Frontend exposes the analysis windows.
func (t *Trigger) Frontend() *frontend.Frontend { return t.front }

// Process samples frame while the pipeline is idle and resets on a
// speech-to-silence edge.
func (t *Trigger) Process(ctx *speech.Context, frame []int16) error {
	if err := speech.CheckFrame(frame, t.frameSize); err != nil {
		return err
	}

	vadFall := t.wasSpeech && !ctx.IsSpeech()
	t.wasSpeech = ctx.IsSpeech()

	if !ctx.IsActive() {
		if err := t.front.Sample(frame, ctx.IsSpeech(), func() error { return t.detectWake(ctx) }); err != nil {
			return err
		}
	}

	if vadFall {
		if !ctx.IsActive() {
			t.logger.Info("wake", slog.Float64("posterior_max", float64(t.posteriorMax)))
		}
		return t.Reset()
	}
	return nil
}

func (t *Trigger) detectWake(ctx *speech.Context) error {
	t.encodeBuf = t.front.ReadEncodings(t.encodeBuf)
	out, err := t.detect.Run(model.Tensor{Shape: t.detectIn.Shape, Data: t.encodeBuf})
	if err != nil {
		return fmt.Errorf("detect model: %w", err)
	}
	if len(out) == 0 || len(out[0].Data) == 0 {
		return fmt.Errorf("detect model: %w: empty output", model.ErrShape)
	}

	posterior := out[0].Data[0]
	if posterior > t.posteriorMax {
		t.posteriorMax = posterior
	}
	if posterior > t.cfg.PosteriorThreshold {
		ctx.SetActive(true)
		t.logger.Info("wake", slog.Float64("posterior_max", float64(t.posteriorMax)))
	}
	return nil
}

// Reset clears the sliding windows, the encoder state, and the posterior max.
func (t *Trigger) Reset() error {
	t.front.Reset()
	t.posteriorMax = 0
	return nil
}

// Close resets the detector and releases all three models.
func (t *Trigger) Close() error {
	return errors.Join(t.Reset(), t.front.Close(), t.detect.Close())
}
