// Package wav reads and writes 16-bit PCM WAV files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFormat is returned for files that are not 16-bit PCM WAV.
var ErrFormat = errors.New("unsupported wav format")

// Header represents a WAV file header
type Header struct {
	ChunkSize     uint32
	SampleRate    uint32
	NumChannels   uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Reader decodes the sample data of a WAV stream.
type Reader struct {
	src    io.Reader
	closer io.Closer
	header Header
	remain uint32
}

// Open opens a WAV file.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader reads the header from src and positions it at the sample data.
func NewReader(src io.Reader) (*Reader, error) {
	r := &Reader{src: src}
	if err := r.readHeader(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	r.remain = r.header.DataSize
	return r, nil
}

// Header returns the WAV file header information
func (r *Reader) Header() Header {
	return r.header
}

// Read decodes up to len(dst) mono samples. Stereo input is averaged to
// mono. It returns io.EOF once the data chunk is exhausted.
func (r *Reader) Read(dst []int16) (int, error) {
	if r.remain == 0 {
		return 0, io.EOF
	}
	channels := int(r.header.NumChannels)
	want := min(len(dst)*channels*2, int(r.remain))
	want -= want % (channels * 2)
	if want == 0 {
		return 0, io.EOF
	}

	buf := make([]byte, want)
	n, err := io.ReadFull(r.src, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		r.remain = 0
	} else if err != nil {
		return 0, fmt.Errorf("failed to read audio data: %w", err)
	} else {
		r.remain -= uint32(n)
	}

	frames := n / (channels * 2)
	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sum += int32(int16(binary.LittleEndian.Uint16(buf[off:])))
		}
		dst[i] = int16(sum / int32(channels))
	}
	if frames == 0 {
		return 0, io.EOF
	}
	return frames, nil
}

// ReadAll decodes every remaining sample.
func (r *Reader) ReadAll() ([]int16, error) {
	var out []int16
	buf := make([]int16, 4096)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// Close closes the underlying file when the reader was opened by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// readHeader reads and validates the WAV file header
func (r *Reader) readHeader() error {
	var riffHeader [12]byte
	if _, err := io.ReadFull(r.src, riffHeader[:]); err != nil {
		return fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" {
		return fmt.Errorf("%w: not a valid RIFF file", ErrFormat)
	}
	if string(riffHeader[8:12]) != "WAVE" {
		return fmt.Errorf("%w: not a valid WAVE file", ErrFormat)
	}
	r.header.ChunkSize = binary.LittleEndian.Uint32(riffHeader[4:8])

	if err := r.readFmtChunk(); err != nil {
		return err
	}
	if err := r.readDataChunk(); err != nil {
		return err
	}

	if r.header.BitsPerSample != 16 {
		return fmt.Errorf("%w: only 16-bit samples are supported, got %d-bit", ErrFormat, r.header.BitsPerSample)
	}
	if r.header.NumChannels != 1 && r.header.NumChannels != 2 {
		return fmt.Errorf("%w: only mono and stereo are supported, got %d channels", ErrFormat, r.header.NumChannels)
	}
	return nil
}

func (r *Reader) readChunkHeader() (string, uint32, error) {
	var chunkHeader [8]byte
	if _, err := io.ReadFull(r.src, chunkHeader[:]); err != nil {
		return "", 0, fmt.Errorf("failed to read chunk header: %w", err)
	}
	return string(chunkHeader[0:4]), binary.LittleEndian.Uint32(chunkHeader[4:8]), nil
}

func (r *Reader) skip(n uint32) error {
	// chunks are padded to an even length
	n += n & 1
	if _, err := io.CopyN(io.Discard, r.src, int64(n)); err != nil {
		return fmt.Errorf("failed to skip chunk: %w", err)
	}
	return nil
}

// readFmtChunk reads the format chunk
func (r *Reader) readFmtChunk() error {
	for {
		chunkID, chunkSize, err := r.readChunkHeader()
		if err != nil {
			return err
		}
		if chunkID != "fmt " {
			if err := r.skip(chunkSize); err != nil {
				return err
			}
			continue
		}
		if chunkSize < 16 {
			return fmt.Errorf("%w: fmt chunk too small: %d bytes", ErrFormat, chunkSize)
		}

		var fmtData [16]byte
		if _, err := io.ReadFull(r.src, fmtData[:]); err != nil {
			return fmt.Errorf("failed to read fmt data: %w", err)
		}
		if audioFormat := binary.LittleEndian.Uint16(fmtData[0:2]); audioFormat != 1 {
			return fmt.Errorf("%w: only PCM format is supported, got format %d", ErrFormat, audioFormat)
		}
		r.header.NumChannels = binary.LittleEndian.Uint16(fmtData[2:4])
		r.header.SampleRate = binary.LittleEndian.Uint32(fmtData[4:8])
		r.header.BitsPerSample = binary.LittleEndian.Uint16(fmtData[14:16])

		if chunkSize > 16 {
			return r.skip(chunkSize - 16)
		}
		return nil
	}
}

// readDataChunk finds the data chunk and leaves the reader at the start of
// audio data
func (r *Reader) readDataChunk() error {
	for {
		chunkID, chunkSize, err := r.readChunkHeader()
		if err != nil {
			return err
		}
		if chunkID == "data" {
			r.header.DataSize = chunkSize
			return nil
		}
		if err := r.skip(chunkSize); err != nil {
			return err
		}
	}
}
