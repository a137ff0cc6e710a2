// Package keyword implements a small-vocabulary keyword recognizer stage.
//
// The recognizer shares the wakeword front end but inverts its schedule: it
// samples and encodes only while the pipeline is active, and classifies the
// accumulated encode window once, when the activation ends.
package keyword

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/chriscow/speechstack-go/pkg/frontend"
	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Model file names expected in a keyword model directory.
const (
	FilterFile = "filter.onnx"
	EncodeFile = "encode.onnx"
	DetectFile = "detect.onnx"
)

// Config holds the recognizer's tunables.
type Config struct {
	SampleRate   int      `yaml:"sample_rate"`
	FrameWidth   int      `yaml:"frame_width"`
	PreEmphasis  float32  `yaml:"pre_emphasis"`
	FFTWindow    string   `yaml:"fft_window_type"`
	FFTHopLength int      `yaml:"fft_hop_length"`
	Threshold    float32  `yaml:"posterior_threshold"`
	Classes      []string `yaml:"classes"`
	ModelDir     string   `yaml:"model_dir"`
}

// DefaultConfig returns the stock recognizer settings. Classes and ModelDir
// must still be supplied.
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		FrameWidth:   20,
		PreEmphasis:  0.97,
		FFTWindow:    frontend.WindowHann,
		FFTHopLength: 10,
		Threshold:    0.5,
	}
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) { r.logger = logger }
}

// Recognizer classifies an activated utterance into one of Config.Classes.
type Recognizer struct {
	cfg       Config
	logger    *slog.Logger
	frameSize int
	front     *frontend.Frontend
	detect    model.Model
	detectIn  model.TensorInfo
	encodeBuf []float32

	wasActive bool
}

var _ speech.Stage = (*Recognizer)(nil)

// New builds a recognizer from loaded models, which it then owns.
func New(cfg Config, filter, encode, detect model.Model, opts ...Option) (*Recognizer, error) {
	if err := speech.ValidateFormat(cfg.SampleRate, cfg.FrameWidth); err != nil {
		return nil, err
	}
	if len(cfg.Classes) == 0 {
		return nil, speech.ConfigError("classes", "required")
	}
	dd := detect.Descriptor()
	if err := dd.Expect(1, 1); err != nil {
		return nil, fmt.Errorf("detect model: %w", err)
	}
	if n := dd.Outputs[0].LastDim(); n != len(cfg.Classes) {
		return nil, speech.ConfigError("classes", "%d classes for a detector with %d outputs", len(cfg.Classes), n)
	}
	front, err := frontend.New(frontend.Config{
		SampleRate:  cfg.SampleRate,
		HopLengthMS: cfg.FFTHopLength,
		PreEmphasis: cfg.PreEmphasis,
		WindowType:  cfg.FFTWindow,
	}, filter, encode, dd.Inputs[0])
	if err != nil {
		return nil, err
	}

	r := &Recognizer{
		cfg:       cfg,
		logger:    slog.Default(),
		frameSize: speech.FrameSize(cfg.SampleRate, cfg.FrameWidth),
		front:     front,
		detect:    detect,
		detectIn:  dd.Inputs[0],
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Load opens the models from cfg.ModelDir and builds a recognizer.
func Load(cfg Config, loader model.Loader, rec model.InferenceRecorder, opts ...Option) (*Recognizer, error) {
	if cfg.ModelDir == "" {
		return nil, speech.ConfigError("model_dir", "required")
	}
	ms := make([]model.Model, 0, 3)
	for _, file := range []string{FilterFile, EncodeFile, DetectFile} {
		m, err := loader.Load(filepath.Join(cfg.ModelDir, file))
		if err != nil {
			for _, loaded := range ms {
				loaded.Close()
			}
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		ms = append(ms, model.Instrument(m, "keyword."+file, rec))
	}
	r, err := New(cfg, ms[0], ms[1], ms[2], opts...)
	if err != nil {
		for _, m := range ms {
			m.Close()
		}
		return nil, err
	}
	return r, nil
}

// Name identifies the stage in logs and metrics.
func (r *Recognizer) Name() string { return "keyword" }

// Process samples while active and classifies on the falling edge.
func (r *Recognizer) Process(ctx *speech.Context, frame []int16) error {
	if err := speech.CheckFrame(frame, r.frameSize); err != nil {
		return err
	}

	if ctx.IsActive() {
		r.wasActive = true
		return r.front.Sample(frame, true, nil)
	}
	if r.wasActive {
		r.wasActive = false
		err := r.classify(ctx)
		return errors.Join(err, r.Reset())
	}
	return nil
}

func (r *Recognizer) classify(ctx *speech.Context) error {
	r.encodeBuf = r.front.ReadEncodings(r.encodeBuf)
	out, err := r.detect.Run(model.Tensor{Shape: r.detectIn.Shape, Data: r.encodeBuf})
	if err != nil {
		return fmt.Errorf("detect model: %w", err)
	}
	if len(out) == 0 || len(out[0].Data) < len(r.cfg.Classes) {
		return fmt.Errorf("detect model: %w: short output", model.ErrShape)
	}

	posteriors := out[0].Data[:len(r.cfg.Classes)]
	best := 0
	for i, p := range posteriors {
		if p > posteriors[best] {
			best = i
		}
	}
	if posteriors[best] >= r.cfg.Threshold {
		ctx.SetTranscript(r.cfg.Classes[best])
		ctx.SetConfidence(float64(posteriors[best]))
		r.logger.Info("keyword recognized",
			slog.String("class", r.cfg.Classes[best]),
			slog.Float64("posterior", float64(posteriors[best])))
		ctx.Event(speech.EventRecognize)
		return nil
	}
	r.logger.Debug("keyword timeout", slog.Float64("posterior", float64(posteriors[best])))
	ctx.Event(speech.EventTimeout)
	return nil
}

// Reset clears the windows and encoder state.
func (r *Recognizer) Reset() error {
	r.front.Reset()
	return nil
}

// Close resets the recognizer and releases the models.
func (r *Recognizer) Close() error {
	return errors.Join(r.Reset(), r.front.Close(), r.detect.Close())
}

// Frontend exposes the analysis windows.
func (r *Recognizer) Frontend() *frontend.Frontend { return r.front }
