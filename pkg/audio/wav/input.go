package wav

import (
	"errors"
	"fmt"
	"io"

	"github.com/chriscow/speechstack-go/pkg/speech"
)

// Input serves a WAV file to a pipeline as fixed-width frames. The last
// frame is zero padded.
type Input struct {
	r         *Reader
	frameSize int
	done      bool
}

var _ speech.InputSource = (*Input)(nil)

// NewInput wraps r. The file's sample rate must match sampleRate.
func NewInput(r *Reader, sampleRate, frameWidth int) (*Input, error) {
	if err := speech.ValidateFormat(sampleRate, frameWidth); err != nil {
		return nil, err
	}
	if got := int(r.Header().SampleRate); got != sampleRate {
		return nil, fmt.Errorf("%w: file is %dHz, pipeline expects %dHz", ErrFormat, got, sampleRate)
	}
	return &Input{r: r, frameSize: speech.FrameSize(sampleRate, frameWidth)}, nil
}

func (in *Input) Start() error { return nil }
func (in *Input) Stop() error  { return nil }

// Read returns the next frame, or io.EOF at the end of the data chunk.
func (in *Input) Read() ([]int16, error) {
	if in.done {
		return nil, io.EOF
	}
	frame := make([]int16, in.frameSize)
	filled := 0
	for filled < len(frame) {
		n, err := in.r.Read(frame[filled:])
		filled += n
		if errors.Is(err, io.EOF) {
			in.done = true
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if filled == 0 {
		return nil, io.EOF
	}
	return frame, nil
}

// Close closes the reader.
func (in *Input) Close() error { return in.r.Close() }
