//go:build silero

package silero

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/chriscow/speechstack-go/pkg/ai/vad"
	"github.com/chriscow/speechstack-go/pkg/model/onnx"
	"github.com/chriscow/speechstack-go/pkg/plugin"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

// Config holds configuration for Silero VAD.
type Config struct {
	Threshold  float32 // speech probability threshold (0.0 to 1.0)
	SampleRate int     // 8000 or 16000
	ModelPath  string  // path to the ONNX model file
	LibPath    string  // ONNX runtime shared library
}

// VAD classifies frames with the Silero model. The model consumes fixed
// windows (512 samples at 16kHz) so frames are buffered and each frame is
// labelled with the most recent window's probability.
type VAD struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	state     *ort.Tensor[float32]
	sr        *ort.Tensor[int64]
	threshold float32
	window    int
	context   int
	pending   []float32
	last      []float32
	prob      float32
}

var _ vad.Classifier = (*VAD)(nil)

// New loads the model at cfg.ModelPath.
func New(cfg Config) (*VAD, error) {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath()
	}
	window, contextSize := 512, 64
	switch cfg.SampleRate {
	case 16000:
	case 8000:
		window, contextSize = 256, 32
	default:
		return nil, fmt.Errorf("%w: silero supports 8kHz and 16kHz, got %d", vad.ErrFatal, cfg.SampleRate)
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: silero model: %v", vad.ErrFatal, err)
	}
	if err := onnx.EnsureEnvironment(cfg.LibPath); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	stateShape, err := stateShape(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	state, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create state tensor: %w", err)
	}
	sr, err := ort.NewTensor(ort.NewShape(1), []int64{int64(cfg.SampleRate)})
	if err != nil {
		state.Destroy()
		return nil, fmt.Errorf("failed to create sr tensor: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input", "state", "sr"}, []string{"output", "stateN"}, nil)
	if err != nil {
		state.Destroy()
		sr.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Loaded Silero VAD model", slog.String("model_path", cfg.ModelPath))
	return &VAD{
		session:   session,
		state:     state,
		sr:        sr,
		threshold: cfg.Threshold,
		window:    window,
		context:   contextSize,
		last:      make([]float32, contextSize),
	}, nil
}

func stateShape(path string) (ort.Shape, error) {
	inputs, _, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	for _, in := range inputs {
		if in.Name != "state" {
			continue
		}
		shape := in.Dimensions.Clone()
		for i, d := range shape {
			if d < 0 {
				shape[i] = 1
			}
		}
		return shape, nil
	}
	return nil, fmt.Errorf("%w: model has no state input", vad.ErrFatal)
}

// IsSpeech buffers frame and runs the model over every complete window.
func (v *VAD) IsSpeech(frame rtc.AudioFrame) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return false, fmt.Errorf("%w: classifier closed", vad.ErrFatal)
	}

	for _, s := range frame.Samples() {
		v.pending = append(v.pending, float32(s)/32768.0)
	}
	for len(v.pending) >= v.window {
		prob, err := v.infer(v.pending[:v.window])
		if err != nil {
			return v.prob >= v.threshold, err
		}
		v.prob = prob
		v.pending = v.pending[v.window:]
	}
	return v.prob >= v.threshold, nil
}

func (v *VAD) infer(window []float32) (float32, error) {
	input := make([]float32, 0, v.context+v.window)
	input = append(input, v.last...)
	input = append(input, window...)
	copy(v.last, window[len(window)-v.context:])

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(input))), input)
	if err != nil {
		return 0, err
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, err
	}
	defer outputTensor.Destroy()

	newState, err := ort.NewEmptyTensor[float32](v.state.GetShape())
	if err != nil {
		return 0, err
	}
	defer newState.Destroy()

	if err := v.session.Run([]ort.Value{inputTensor, v.state, v.sr}, []ort.Value{outputTensor, newState}); err != nil {
		return 0, fmt.Errorf("silero inference: %w", err)
	}
	copy(v.state.GetData(), newState.GetData())
	return outputTensor.GetData()[0], nil
}

// Reset clears the recurrent state and buffered audio.
func (v *VAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.state.GetData())
	clear(v.last)
	v.pending = v.pending[:0]
	v.prob = 0
}

// Capabilities returns the VAD capabilities.
func (v *VAD) Capabilities() vad.Capabilities {
	return vad.Capabilities{
		SampleRates: []int{8000, 16000},
		FrameWidths: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		Sensitivity: v.threshold,
	}
}

// Close releases the session and tensors.
func (v *VAD) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return nil
	}
	err := v.session.Destroy()
	v.state.Destroy()
	v.sr.Destroy()
	v.session = nil
	return err
}

// newSileroVAD is the factory function for the plugin system.
func newSileroVAD(cfg map[string]any) (any, error) {
	return New(Config{
		Threshold:  float32(plugin.Float(cfg, "threshold", DefaultThreshold)),
		SampleRate: plugin.Int(cfg, "sample_rate", 16000),
		ModelPath:  plugin.String(cfg, "model_path", ""),
		LibPath:    plugin.String(cfg, "lib_path", ""),
	})
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "silero",
		Factory:     newSileroVAD,
		Description: "Silero VAD ONNX model",
		Version:     "1.0.0",
		Config: map[string]any{
			"threshold":   DefaultThreshold,
			"sample_rate": 16000,
			"model_path":  "",
			"lib_path":    "",
		},
		Downloader: &Downloader{},
	})
}
