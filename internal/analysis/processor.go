// SPDX-License-Identifier: MIT

// Package analysis holds the detectors that turn amplitude snapshots into
// musical results: pitch, chord, beat and spectral summaries. Every
// detector reads from a Source on demand and returns nil when there is
// nothing usable to report.
package analysis

import "math"

// Source provides the snapshots detectors read. audio.AmplitudeSource
// satisfies it.
type Source interface {
	// FrequencyData returns the byte spectrum (index -> bin, low to high),
	// or nil when the source is not ready.
	FrequencyData() []byte
	// WaveformData returns the byte waveform centred at 128, or nil.
	WaveformData() []byte
	// Volume is the mean spectrum amplitude scaled to 0..100.
	Volume() int
	SampleRate() float64
	BinCount() int
	IndexToFrequency(i int) float64
}

// roundHalfUp rounds .5 toward positive infinity, so -0.5 becomes 0 rather
// than -1.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// percentOf scales a 0..255 level to a rounded 0..100 percentage.
func percentOf(level float64) int {
	return int(roundHalfUp(level / 255 * 100))
}

// binFor maps a frequency to the floor bin index for a spectrum of bins
// covering 0..sampleRate/2.
func binFor(freq, sampleRate float64, bins int) int {
	nyquist := sampleRate / 2
	if nyquist <= 0 {
		return 0
	}
	return int(math.Floor(freq / nyquist * float64(bins)))
}
