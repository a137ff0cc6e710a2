package speech

import (
	"encoding/binary"
	"errors"
	"io"
)

// SliceInput serves frames from memory. It is used by tests and for audio
// that has already been decoded.
type SliceInput struct {
	frames  [][]int16
	pos     int
	started bool
}

// NewSliceInput returns a source that yields frames in order, then io.EOF.
func NewSliceInput(frames [][]int16) *SliceInput {
	return &SliceInput{frames: frames}
}

// SplitFrames cuts samples into frames of size samples each. A trailing
// partial frame is zero padded.
func SplitFrames(samples []int16, size int) [][]int16 {
	if size <= 0 {
		return nil
	}
	var frames [][]int16
	for off := 0; off < len(samples); off += size {
		frame := make([]int16, size)
		copy(frame, samples[off:min(off+size, len(samples))])
		frames = append(frames, frame)
	}
	return frames
}

func (s *SliceInput) Start() error { s.started = true; return nil }
func (s *SliceInput) Stop() error  { s.started = false; return nil }
func (s *SliceInput) Close() error { s.frames = nil; return nil }

// Read returns the next frame, or io.EOF once all frames were served.
func (s *SliceInput) Read() ([]int16, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Started reports whether Start was called more recently than Stop.
func (s *SliceInput) Started() bool { return s.started }

// PCMInput reads raw little-endian PCM-16 mono audio, such as piped stdin.
type PCMInput struct {
	r         io.Reader
	frameSize int
	buf       []byte
}

// NewPCMInput returns a source cutting r into frames of frameSize samples.
// A trailing partial frame is zero padded.
func NewPCMInput(r io.Reader, frameSize int) *PCMInput {
	return &PCMInput{r: r, frameSize: frameSize, buf: make([]byte, 2*frameSize)}
}

func (p *PCMInput) Start() error { return nil }
func (p *PCMInput) Stop() error  { return nil }

// Close closes the reader when it is an io.Closer.
func (p *PCMInput) Close() error {
	if c, ok := p.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Read blocks until a full frame is available or the reader ends.
func (p *PCMInput) Read() ([]int16, error) {
	n, err := io.ReadFull(p.r, p.buf)
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		clear(p.buf[n:])
	case err != nil:
		return nil, err
	}
	frame := make([]int16, p.frameSize)
	for i := range frame {
		frame[i] = int16(binary.LittleEndian.Uint16(p.buf[2*i:]))
	}
	return frame, nil
}
