package dsp

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestNormalize(t *testing.T) {
	is := is.New(t)
	got := Normalize(nil, []int16{0, 32767, -32767, -32768})
	is.Equal(got[0], float32(0))
	is.Equal(got[1], float32(1))
	is.Equal(got[2], float32(-1))
	is.Equal(got[3], float32(-1)) // clipped
}

func TestPreEmphasisContinuity(t *testing.T) {
	is := is.New(t)
	signal := []float32{0.1, 0.5, -0.2, 0.3, 0.9, -0.7, 0.05, 0.4}

	whole := append([]float32(nil), signal...)
	(&PreEmphasis{Coefficient: 0.97}).Apply(whole)

	split := append([]float32(nil), signal...)
	p := &PreEmphasis{Coefficient: 0.97}
	p.Apply(split[:4])
	p.Apply(split[4:])

	for i := range whole {
		is.True(math.Abs(float64(whole[i]-split[i])) < 1e-6)
	}
	// first sample of the second frame is emphasized against 0.3, not zero
	is.True(math.Abs(float64(split[4])-(0.9-0.97*0.3)) < 1e-6)
}

func TestPreEmphasisReset(t *testing.T) {
	is := is.New(t)
	p := &PreEmphasis{Coefficient: 0.5}
	p.Apply([]float32{1})
	p.Reset()
	x := []float32{1}
	p.Apply(x)
	is.Equal(x[0], float32(1))
}

func TestSTFTMagnitude(t *testing.T) {
	is := is.New(t)
	s := NewSTFT(512)
	is.Equal(s.Bins(), 257)

	// Hann window endpoints are zero.
	is.True(math.Abs(s.window[0]) < 1e-12)
	is.True(math.Abs(s.window[511]) < 1e-12)

	// A constant frame concentrates energy at DC: sum of the Hann window.
	frame := make([]float32, 512)
	for i := range frame {
		frame[i] = 1
	}
	var wsum float64
	for _, w := range s.window {
		wsum += w
	}
	mag := make([]float32, s.Bins())
	s.Magnitude(mag, frame)
	is.True(math.Abs(float64(mag[0])-wsum) < 1e-3)
	is.True(mag[0] > mag[10]*1000)
}

func TestSTFTSineBin(t *testing.T) {
	is := is.New(t)
	const n = 256
	s := NewSTFT(n)
	frame := make([]float32, n)
	for i := range frame {
		frame[i] = float32(math.Sin(2 * math.Pi * 16 * float64(i) / n))
	}
	mag := make([]float32, s.Bins())
	s.Magnitude(mag, frame)

	peak := 0
	for i := range mag {
		if mag[i] > mag[peak] {
			peak = i
		}
	}
	is.Equal(peak, 16)
}

func TestRMSAndDBFS(t *testing.T) {
	is := is.New(t)
	is.Equal(RMS(nil), 0.0)
	is.Equal(RMS([]int16{3, -3, 3, -3}), 3.0)
	is.True(math.IsInf(DBFS(0), -1))
	is.True(math.Abs(DBFS(32767)) < 1e-9)
}
