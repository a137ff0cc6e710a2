package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/chriscow/speechstack-go/pkg/rtc"
)

const headerSize = 44

// Writer writes mono 16-bit PCM WAV data. The RIFF and data sizes are
// patched on Close, so the destination must be seekable.
type Writer struct {
	dst            io.WriteSeeker
	closer         io.Closer
	sampleRate     uint32
	samplesWritten uint32
}

// Create creates a WAV file.
func Create(filename string, sampleRate int) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}
	w, err := NewWriter(file, sampleRate)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.closer = file
	return w, nil
}

// NewWriter writes a provisional header to dst.
func NewWriter(dst io.WriteSeeker, sampleRate int) (*Writer, error) {
	w := &Writer{dst: dst, sampleRate: uint32(sampleRate)}
	if _, err := dst.Write(header(w.sampleRate, 0)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	return w, nil
}

// WriteSamples appends samples.
func (w *Writer) WriteSamples(samples []int16) error {
	if _, err := w.dst.Write(rtc.EncodePCM16(nil, samples)); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.samplesWritten += uint32(len(samples))
	return nil
}

// Samples returns the number of samples written so far.
func (w *Writer) Samples() int { return int(w.samplesWritten) }

// Close finalizes the header with the correct sizes.
func (w *Writer) Close() error {
	if w.dst == nil {
		return nil
	}
	dataSize := w.samplesWritten * 2

	if _, err := w.dst.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to chunk size: %w", err)
	}
	if err := binary.Write(w.dst, binary.LittleEndian, dataSize+headerSize-8); err != nil {
		return fmt.Errorf("failed to write chunk size: %w", err)
	}
	if _, err := w.dst.Seek(40, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to data size: %w", err)
	}
	if err := binary.Write(w.dst, binary.LittleEndian, dataSize); err != nil {
		return fmt.Errorf("failed to write data size: %w", err)
	}
	w.dst = nil

	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Encode returns an in-memory mono WAV file holding samples.
func Encode(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize + 2*len(samples))
	buf.Write(header(uint32(sampleRate), uint32(2*len(samples))))
	buf.Write(rtc.EncodePCM16(nil, samples))
	return buf.Bytes()
}

func header(sampleRate, dataSize uint32) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	h := make([]byte, headerSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], dataSize+headerSize-8)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], channels)
	binary.LittleEndian.PutUint32(h[24:28], sampleRate)
	binary.LittleEndian.PutUint32(h[28:32], sampleRate*channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(h[32:34], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(h[34:36], bitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataSize)
	return h
}
