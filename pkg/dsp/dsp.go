// Package dsp holds the signal front end shared by the wakeword and keyword
// stages: PCM normalization, pre-emphasis, and windowed STFT magnitudes.
package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// pcmScale maps int16 samples onto [-1, 1].
const pcmScale = 32767.0

// Normalize converts PCM-16 samples to floats in [-1, 1], writing into dst.
// dst is grown as needed and returned.
func Normalize(dst []float32, frame []int16) []float32 {
	if cap(dst) < len(frame) {
		dst = make([]float32, len(frame))
	}
	dst = dst[:len(frame)]
	for i, s := range frame {
		v := float32(float64(s) / pcmScale)
		dst[i] = max(-1, min(1, v))
	}
	return dst
}

// PreEmphasis is a first-order high-pass filter y[n] = x[n] - a*x[n-1].
// The last input sample is carried across calls so consecutive frames
// filter the same as their concatenation.
type PreEmphasis struct {
	Coefficient float32
	prev        float32
}

// Apply filters samples in place.
func (p *PreEmphasis) Apply(samples []float32) {
	if len(samples) == 0 {
		return
	}
	last := samples[len(samples)-1]
	prev := p.prev
	for i, x := range samples {
		samples[i] = x - p.Coefficient*prev
		prev = x
	}
	p.prev = last
}

// Reset clears the carried sample.
func (p *PreEmphasis) Reset() { p.prev = 0 }

// STFT computes magnitude spectra of fixed-size frames under a symmetric
// Hann window. It is not safe for concurrent use.
type STFT struct {
	size   int
	window []float64
	fft    *fourier.FFT
	buf    []float64
	coeffs []complex128
}

// NewSTFT prepares a transform for frames of size samples.
func NewSTFT(size int) *STFT {
	w := make([]float64, size)
	for i := range w {
		w[i] = 1
	}
	return &STFT{
		size:   size,
		window: window.Hann(w),
		fft:    fourier.NewFFT(size),
		buf:    make([]float64, size),
		coeffs: make([]complex128, size/2+1),
	}
}

// Size returns the frame length.
func (s *STFT) Size() int { return s.size }

// Bins returns the number of magnitude bins produced per frame.
func (s *STFT) Bins() int { return s.size/2 + 1 }

// Magnitude windows frame and writes |rfft(frame)| into dst, which must hold
// Bins() values. frame must hold Size() samples.
func (s *STFT) Magnitude(dst []float32, frame []float32) {
	for i, v := range frame[:s.size] {
		s.buf[i] = float64(v) * s.window[i]
	}
	s.coeffs = s.fft.Coefficients(s.coeffs, s.buf)
	for i, c := range s.coeffs {
		dst[i] = float32(cmplx.Abs(c))
	}
}

// RMS returns the root mean square of samples in PCM units.
func RMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// DBFS converts an RMS level in PCM units to decibels relative to full scale.
// Silence maps to -inf.
func DBFS(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/pcmScale)
}
