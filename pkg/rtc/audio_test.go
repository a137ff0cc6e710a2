package rtc

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestFromSamples(t *testing.T) {
	is := is.New(t)
	samples := []int16{0, 1, -1, 32767, -32768}
	f := FromSamples(samples, 16000, 0)
	is.Equal(len(f.Data), 10)
	is.Equal(f.Data[2], byte(0x01))
	is.Equal(f.Data[4], byte(0xff))
	is.Equal(f.Samples(), samples)
}

func TestNewAudioFrame(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		channels int
		wantErr  bool
	}{
		{"mono 20ms", 640, 1, false},
		{"stereo", 8, 2, false},
		{"odd bytes", 641, 1, true},
		{"partial stereo sample", 6, 2, true},
		{"no channels", 640, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAudioFrame(make([]byte, tt.size), 16000, tt.channels, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAudioFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	is := is.New(t)
	f := FromSamples(make([]int16, 320), 16000, 0)
	is.Equal(f.Duration(), 20*time.Millisecond)

	c := f.Clone()
	c.Data[0] = 9
	is.Equal(f.Data[0], byte(0))
}
