// Package frontend implements the streaming analysis cascade shared by the
// wakeword and keyword stages.
//
// Raw PCM is normalized and pre-emphasized into an overlapping sample window.
// Every time the window fills it may be analyzed: a Hann-windowed STFT
// magnitude frame goes through the filter model into a frame window, and the
// frame window goes through the autoregressive encoder into an encode window.
// The detector that consumes the encode window belongs to the caller.
package frontend

import (
	"errors"
	"fmt"

	"github.com/chriscow/speechstack-go/pkg/dsp"
	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/ringbuf"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

// WindowHann is the only supported FFT window.
const WindowHann = "hann"

// Config sizes the sliding windows.
type Config struct {
	SampleRate     int
	HopLengthMS    int
	PreEmphasis    float32
	WindowType     string
	FrameSentinel  float32
	EncodeSentinel float32
}

// Frontend owns the sample, frame and encode windows and the encoder state.
type Frontend struct {
	cfg    Config
	filter model.Model
	encode model.Model

	hop        int
	stft       *dsp.STFT
	emphasis   dsp.PreEmphasis
	filterIn   model.TensorInfo
	encodeIn   model.TensorInfo
	encodeOut  int
	melWidth   int
	state      model.Tensor
	samples    *ringbuf.RingBuffer[float32]
	frames     *ringbuf.RingBuffer[float32]
	encodings  *ringbuf.RingBuffer[float32]
	normalized []float32
	windowBuf  []float32
	spectrum   []float32
	frameBuf   []float32
}

// New sizes the cascade from the model descriptors. detectIn is the
// detector's input, whose second and last dimensions give the encode
// window length and width.
func New(cfg Config, filter, encode model.Model, detectIn model.TensorInfo) (*Frontend, error) {
	if cfg.WindowType != WindowHann {
		return nil, speech.ConfigError("fft_window_type", "%q not supported", cfg.WindowType)
	}
	fd := filter.Descriptor()
	if err := fd.Expect(1, 1); err != nil {
		return nil, fmt.Errorf("filter model: %w", err)
	}
	ed := encode.Descriptor()
	if err := ed.Expect(2, 2); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}

	// the filter input holds fft_size/2+1 bins
	windowSize := (fd.Inputs[0].LastDim() - 1) * 2
	if windowSize <= 0 {
		return nil, fmt.Errorf("filter model: %w: input shape %v", model.ErrShape, fd.Inputs[0].Shape)
	}
	hop := cfg.HopLengthMS * cfg.SampleRate / 1000
	if hop <= 0 || hop > windowSize {
		return nil, speech.ConfigError("fft_hop_length", "%d samples outside (0, %d]", hop, windowSize)
	}

	melLength := ed.Inputs[0].Dim(1)
	melWidth := ed.Inputs[0].LastDim()
	if got := fd.Outputs[0].LastDim(); got != melWidth {
		return nil, fmt.Errorf("%w: filter output width %d, encoder expects %d", model.ErrShape, got, melWidth)
	}
	encodeLength := detectIn.Dim(1)
	encodeWidth := detectIn.LastDim()
	if got := ed.Outputs[0].LastDim(); got != encodeWidth {
		return nil, fmt.Errorf("%w: encoder output width %d, detector expects %d", model.ErrShape, got, encodeWidth)
	}

	samples, err := ringbuf.New[float32](windowSize)
	if err != nil {
		return nil, err
	}
	frames, err := ringbuf.New[float32](melLength, melWidth)
	if err != nil {
		return nil, fmt.Errorf("frame window: %w", err)
	}
	encodings, err := ringbuf.New[float32](encodeLength, encodeWidth)
	if err != nil {
		return nil, fmt.Errorf("encode window: %w", err)
	}
	frames.Fill(cfg.FrameSentinel)
	encodings.Fill(cfg.EncodeSentinel)

	return &Frontend{
		cfg:       cfg,
		filter:    filter,
		encode:    encode,
		hop:       hop,
		stft:      dsp.NewSTFT(windowSize),
		emphasis:  dsp.PreEmphasis{Coefficient: cfg.PreEmphasis},
		filterIn:  fd.Inputs[0],
		encodeIn:  ed.Inputs[0],
		encodeOut: encodeWidth,
		melWidth:  melWidth,
		state:     model.NewTensor(ed.Inputs[1].Shape...),
		samples:   samples,
		frames:    frames,
		encodings: encodings,
		spectrum:  make([]float32, windowSize/2+1),
	}, nil
}

// WindowSize returns the sample window length.
func (f *Frontend) WindowSize() int { return f.stft.Size() }

// HopLength returns how many samples the window advances per analysis.
func (f *Frontend) HopLength() int { return f.hop }

// Samples exposes the sample window.
func (f *Frontend) Samples() *ringbuf.RingBuffer[float32] { return f.samples }

// Frames exposes the frame window.
func (f *Frontend) Frames() *ringbuf.RingBuffer[float32] { return f.frames }

// Encodings exposes the encode window.
func (f *Frontend) Encodings() *ringbuf.RingBuffer[float32] { return f.encodings }

// State returns the encoder's recurrent state.
func (f *Frontend) State() model.Tensor { return f.state }

// Sample pushes frame through the sample window. Each time the window fills
// and analyze is true, the window is analyzed and encoded, then onEncode
// (if non-nil) is called. The window then slides by the hop length.
func (f *Frontend) Sample(frame []int16, analyze bool, onEncode func() error) error {
	f.normalized = dsp.Normalize(f.normalized, frame)
	f.emphasis.Apply(f.normalized)

	for _, s := range f.normalized {
		if err := f.samples.Write(s); err != nil {
			return fmt.Errorf("sample window: %w", err)
		}
		if !f.samples.IsFull() {
			continue
		}
		if analyze {
			if err := f.analyze(); err != nil {
				return err
			}
			if onEncode != nil {
				if err := onEncode(); err != nil {
					return err
				}
			}
		}
		f.samples.Rewind().Seek(f.hop)
	}
	return nil
}

func (f *Frontend) analyze() error {
	f.windowBuf = f.samples.ReadAll(f.windowBuf[:0])
	f.stft.Magnitude(f.spectrum, f.windowBuf)

	out, err := f.filter.Run(model.Tensor{Shape: f.filterIn.Shape, Data: f.spectrum})
	if err != nil {
		return fmt.Errorf("filter model: %w", err)
	}
	if len(out) == 0 || len(out[0].Data) < f.melWidth {
		return fmt.Errorf("filter model: %w: short output", model.ErrShape)
	}
	f.frames.Rewind().Seek(1)
	if err := f.frames.Write(out[0].Data[:f.melWidth]...); err != nil {
		return fmt.Errorf("frame window: %w", err)
	}

	f.frameBuf = f.frames.ReadAll(f.frameBuf[:0])
	out, err = f.encode.Run(model.Tensor{Shape: f.encodeIn.Shape, Data: f.frameBuf}, f.state)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if len(out) < 2 || len(out[0].Data) < f.encodeOut || len(out[1].Data) != len(f.state.Data) {
		return fmt.Errorf("encode model: %w: unexpected outputs", model.ErrShape)
	}
	copy(f.state.Data, out[1].Data)
	f.encodings.Rewind().Seek(1)
	if err := f.encodings.Write(out[0].Data[:f.encodeOut]...); err != nil {
		return fmt.Errorf("encode window: %w", err)
	}
	return nil
}

// ReadEncodings drains the encode window, oldest first, into dst.
func (f *Frontend) ReadEncodings(dst []float32) []float32 {
	return f.encodings.ReadAll(dst[:0])
}

// Reset empties every window, pre-loads the frame and encode windows with
// their sentinels, and zeroes the encoder state. The carried pre-emphasis
// sample survives, keeping the filter continuous across utterances.
func (f *Frontend) Reset() {
	f.samples.Reset()
	f.frames.Reset().Overwrite(f.cfg.FrameSentinel)
	f.encodings.Reset().Overwrite(f.cfg.EncodeSentinel)
	f.state.Zero()
}

// Close releases the filter and encode models.
func (f *Frontend) Close() error {
	var errs []error
	if err := f.filter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("filter model: %w", err))
	}
	if err := f.encode.Close(); err != nil {
		errs = append(errs, fmt.Errorf("encode model: %w", err))
	}
	return errors.Join(errs...)
}
