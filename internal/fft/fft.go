// SPDX-License-Identifier: MIT

// Package fft turns a stream of mono samples into the byte snapshots the
// detectors read: a smoothed decibel spectrum and a time-domain waveform,
// both scaled to 0..255.
package fft

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"practice/pkg/bitint"
)

// Decibel range mapped onto 0..255 in the byte spectrum.
const (
	MinDecibels = -100.0
	MaxDecibels = -30.0
)

type workspace struct {
	input     []float64    // windowed samples in time order
	fftOutput []complex128 // N/2+1 coefficients
	smoothed  []float64    // N/2 smoothed magnitudes, persists across calls
	window    []float64
}

// Analyser keeps the most recent fftSize samples and produces byte
// snapshots on demand. Write is called from the audio callback; the
// snapshot methods are called from the poll loop.
type Analyser struct {
	fftSize    int
	sampleRate float64
	smoothing  float64
	fftObj     *fourier.FFT

	mu     sync.Mutex
	ring   []float32
	pos    int
	filled bool
	ws     workspace
}

// NewAnalyser creates an analyser with a window of fftSize samples.
// smoothing is the time constant in [0, 1) applied between successive
// frequency snapshots.
func NewAnalyser(fftSize int, sampleRate, smoothing float64, win WindowFunc) (*Analyser, error) {
	if !bitint.IsPowerOfTwo(fftSize) || fftSize < 32 {
		return nil, fmt.Errorf("fft size must be a power of 2 >= 32, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0, 1), got %f", smoothing)
	}

	bins := bitint.HalfOf(fftSize)
	return &Analyser{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		smoothing:  smoothing,
		fftObj:     fourier.NewFFT(fftSize),
		ring:       make([]float32, fftSize),
		ws: workspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, bins+1),
			smoothed:  make([]float64, bins),
			window:    coefficients(win, fftSize),
		},
	}, nil
}

func (a *Analyser) FFTSize() int        { return a.fftSize }
func (a *Analyser) BinCount() int       { return bitint.HalfOf(a.fftSize) }
func (a *Analyser) SampleRate() float64 { return a.sampleRate }

// IndexToFrequency maps a bin index to its frequency in Hz.
func (a *Analyser) IndexToFrequency(i int) float64 {
	return float64(i) * (a.sampleRate / 2) / float64(a.BinCount())
}

// Write appends samples in [-1, 1] to the ring. It does not allocate.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos++
		if a.pos == a.fftSize {
			a.pos = 0
			a.filled = true
		}
	}
	a.mu.Unlock()
}

// Reset clears samples and smoothing state.
func (a *Analyser) Reset() {
	a.mu.Lock()
	clear(a.ring)
	clear(a.ws.smoothed)
	a.pos = 0
	a.filled = false
	a.mu.Unlock()
}

// FrequencyData fills dst with BinCount() bytes of smoothed spectrum and
// returns it. A nil or short dst is replaced by a new slice.
func (a *Analyser) FrequencyData(dst []byte) []byte {
	bins := a.BinCount()
	if cap(dst) < bins {
		dst = make([]byte, bins)
	}
	dst = dst[:bins]

	a.mu.Lock()
	defer a.mu.Unlock()

	ws := &a.ws
	for i := range a.fftSize {
		s := a.ring[(a.pos+i)%a.fftSize]
		ws.input[i] = float64(s) * ws.window[i]
	}
	_ = a.fftObj.Coefficients(ws.fftOutput, ws.input)

	scale := 255 / (MaxDecibels - MinDecibels)
	n := float64(a.fftSize)
	for k := range bins {
		mag := cmplx.Abs(ws.fftOutput[k]) / n
		ws.smoothed[k] = a.smoothing*ws.smoothed[k] + (1-a.smoothing)*mag

		db := MinDecibels
		if ws.smoothed[k] > 0 {
			db = 20 * math.Log10(ws.smoothed[k])
		}
		dst[k] = clampByte(scale * (db - MinDecibels))
	}
	return dst
}

// TimeDomainData fills dst with FFTSize() waveform bytes centred at 128.
func (a *Analyser) TimeDomainData(dst []byte) []byte {
	if cap(dst) < a.fftSize {
		dst = make([]byte, a.fftSize)
	}
	dst = dst[:a.fftSize]

	a.mu.Lock()
	for i := range a.fftSize {
		s := float64(a.ring[(a.pos+i)%a.fftSize])
		dst[i] = clampByte(128 * (s + 1))
	}
	a.mu.Unlock()
	return dst
}

// Filled reports whether a full window of samples has been written.
func (a *Analyser) Filled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filled
}

func clampByte(v float64) byte {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
