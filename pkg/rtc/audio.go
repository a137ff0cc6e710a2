// Package rtc defines the PCM audio frame exchanged with speech recognizers.
package rtc

import (
	"encoding/binary"
	"fmt"
	"time"
)

// AudioFrame is a block of 16-bit little-endian PCM audio.
// Len(Data) == SamplesPerChannel * NumChannels * 2.
//
// A zero Timestamp means "live"; otherwise it is the offset from the start
// of the stream.
type AudioFrame struct {
	Data              []byte        // 16-bit PCM, little-endian
	SampleRate        int           // 8000, 16000 or 32000 for pipeline audio
	SamplesPerChannel int           // SampleRate * frame width / 1000
	NumChannels       int           // pipeline audio is mono
	Timestamp         time.Duration // optional
}

// NewAudioFrame wraps PCM bytes. Data must hold whole samples for every channel.
func NewAudioFrame(data []byte, sampleRate, numChannels int, timestamp time.Duration) (*AudioFrame, error) {
	if sampleRate <= 0 || numChannels <= 0 {
		return nil, fmt.Errorf("AudioFrame: invalid format %dHz %d-channel", sampleRate, numChannels)
	}
	if len(data)%(2*numChannels) != 0 {
		return nil, fmt.Errorf("AudioFrame data length mismatch: %d bytes is not a whole number of %d-channel samples",
			len(data), numChannels)
	}
	return &AudioFrame{
		Data:              data,
		SampleRate:        sampleRate,
		SamplesPerChannel: len(data) / (2 * numChannels),
		NumChannels:       numChannels,
		Timestamp:         timestamp,
	}, nil
}

// FromSamples encodes mono samples into a new frame.
func FromSamples(samples []int16, sampleRate int, timestamp time.Duration) AudioFrame {
	return AudioFrame{
		Data:              EncodePCM16(nil, samples),
		SampleRate:        sampleRate,
		SamplesPerChannel: len(samples),
		NumChannels:       1,
		Timestamp:         timestamp,
	}
}

// Samples decodes the frame's interleaved samples.
func (f *AudioFrame) Samples() []int16 {
	return DecodePCM16(nil, f.Data)
}

// Clone creates a deep copy of the AudioFrame.
func (f *AudioFrame) Clone() *AudioFrame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)

	return &AudioFrame{
		Data:              data,
		SampleRate:        f.SampleRate,
		SamplesPerChannel: f.SamplesPerChannel,
		NumChannels:       f.NumChannels,
		Timestamp:         f.Timestamp,
	}
}

// Duration returns the duration represented by this frame.
func (f *AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.SamplesPerChannel) * time.Second / time.Duration(f.SampleRate)
}

// EncodePCM16 appends samples to dst as little-endian bytes.
func EncodePCM16(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}

// DecodePCM16 appends the little-endian samples in data to dst. A trailing
// odd byte is ignored.
func DecodePCM16(dst []int16, data []byte) []int16 {
	for i := 0; i+1 < len(data); i += 2 {
		dst = append(dst, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	return dst
}
