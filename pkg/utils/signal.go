package utils

import (
	"math"
	"sync"
)

// GenerateSineWave returns size samples of a full-scale-0.9 sine in [-1, 1].
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// WaveformBytes encodes samples the way an analyser reports the time
// domain: 128 is zero, clamped to 0..255.
func WaveformBytes(samples []float32) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		v := math.Round(128 * (float64(s) + 1))
		out[i] = byte(max(0, min(255, v)))
	}
	return out
}

// SpectrumWithPeaks returns a bins-long spectrum that is zero except at the
// bins nearest to each frequency in peaks.
func SpectrumWithPeaks(bins int, sampleRate float64, peaks map[float64]byte) []byte {
	out := make([]byte, bins)
	width := sampleRate / 2 / float64(bins)
	for freq, amp := range peaks {
		i := int(math.Round(freq / width))
		if i >= 0 && i < bins {
			out[i] = amp
		}
	}
	return out
}

// FakeSource serves fixed snapshots. It satisfies the detectors' source
// interface without any audio hardware.
type FakeSource struct {
	mu       sync.Mutex
	Spectrum []byte
	Waveform []byte
	Rate     float64
	Stopped  bool
}

func NewFakeSource(sampleRate float64, spectrum, waveform []byte) *FakeSource {
	return &FakeSource{Rate: sampleRate, Spectrum: spectrum, Waveform: waveform}
}

// SetSpectrum replaces the frequency snapshot.
func (f *FakeSource) SetSpectrum(spectrum []byte) {
	f.mu.Lock()
	f.Spectrum = spectrum
	f.mu.Unlock()
}

func (f *FakeSource) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Stopped && (f.Spectrum != nil || f.Waveform != nil)
}

func (f *FakeSource) FrequencyData() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Stopped || f.Spectrum == nil {
		return nil
	}
	return append([]byte(nil), f.Spectrum...)
}

func (f *FakeSource) WaveformData() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Stopped || f.Waveform == nil {
		return nil
	}
	return append([]byte(nil), f.Waveform...)
}

func (f *FakeSource) Volume() int {
	data := f.FrequencyData()
	if len(data) == 0 {
		return 0
	}
	sum := 0
	for _, v := range data {
		sum += int(v)
	}
	return int(math.Round(float64(sum) / float64(len(data)) / 255 * 100))
}

func (f *FakeSource) SampleRate() float64 { return f.Rate }

func (f *FakeSource) BinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Spectrum != nil {
		return len(f.Spectrum)
	}
	return len(f.Waveform) / 2
}

func (f *FakeSource) IndexToFrequency(i int) float64 {
	bins := f.BinCount()
	if bins == 0 {
		return 0
	}
	return float64(i) * (f.Rate / 2) / float64(bins)
}

func (f *FakeSource) Stop() error {
	f.mu.Lock()
	f.Stopped = true
	f.mu.Unlock()
	return nil
}
