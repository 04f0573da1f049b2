package analysis

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Spectral defaults.
const (
	DefaultBars           = 64
	DefaultWaveformPoints = 512
	DefaultSpectrumBands  = 10
	DefaultSoundThreshold = 5
	LogSpectrumMinHz      = 20.0
	LogSpectrumMaxHz      = 8000.0

	barCompression = 0.7
	bassMaxHz      = 250.0
	midMaxHz       = 2000.0
)

// Dominant is the loudest bin.
type Dominant struct {
	Frequency int `json:"frequency"`
	Amplitude int `json:"amplitude"`
}

// Ranges is the coarse three-band level view, each 0..100.
type Ranges struct {
	Bass   int `json:"bass"`
	Mid    int `json:"mid"`
	Treble int `json:"treble"`
}

// SpectrumBand is one labelled group of bins.
type SpectrumBand struct {
	Frequency int    `json:"frequency"`
	Label     string `json:"label"`
	Amplitude int    `json:"amplitude"`
}

// Summary collects everything the spectrum view shows for one snapshot.
type Summary struct {
	Bars     []int          `json:"bars"`
	Dominant Dominant       `json:"dominant"`
	Ranges   Ranges         `json:"ranges"`
	Bands    []BandLevel    `json:"bands"`
	Loudest  string         `json:"dominantBand"`
	Volume   int            `json:"volume"`
	Sound    bool           `json:"soundDetected"`
	Peak     *Note          `json:"peakNote,omitempty"`
	Waveform []float64      `json:"-"`
	Spectrum []SpectrumBand `json:"spectrum"`
}

// SpectralAnalyzer summarises snapshots from a source. It holds no state
// between calls apart from its configuration.
type SpectralAnalyzer struct {
	src            Source
	BarCount       int
	SoundThreshold int
}

func NewSpectralAnalyzer(src Source, barCount int) *SpectralAnalyzer {
	if barCount <= 0 {
		barCount = DefaultBars
	}
	return &SpectralAnalyzer{src: src, BarCount: barCount, SoundThreshold: DefaultSoundThreshold}
}

// Bars groups the spectrum into n equal bars, each 0..100 after perceptual
// compression. n <= 0 uses BarCount, and DefaultBars when that is unset
// too. A missing snapshot gives all zeros.
func (a *SpectralAnalyzer) Bars(n int) []int {
	if n <= 0 {
		n = a.BarCount
	}
	return bars(a.src.FrequencyData(), n)
}

func bars(data []byte, n int) []int {
	if n <= 0 {
		n = DefaultBars
	}
	out := make([]int, n)
	per := len(data) / n
	if data == nil || per == 0 {
		return out
	}
	for i := range out {
		sum := 0
		for _, v := range data[i*per : (i+1)*per] {
			sum += int(v)
		}
		norm := float64(sum) / float64(per) / 255
		out[i] = int(roundHalfUp(math.Pow(norm, barCompression) * 100))
	}
	return out
}

// DominantFrequency returns the loudest bin in Hz, rounded.
func (a *SpectralAnalyzer) DominantFrequency() Dominant {
	return a.dominant(a.src.FrequencyData())
}

func (a *SpectralAnalyzer) dominant(data []byte) Dominant {
	var d Dominant
	idx := 0
	for i, v := range data {
		if int(v) > d.Amplitude {
			d.Amplitude = int(v)
			idx = i
		}
	}
	if data != nil {
		d.Frequency = int(roundHalfUp(a.src.IndexToFrequency(idx)))
	}
	return d
}

// Ranges returns bass (< 250 Hz), mid (250-2000 Hz) and treble levels.
func (a *SpectralAnalyzer) Ranges() Ranges {
	return ranges(a.src.FrequencyData(), a.src.SampleRate())
}

func ranges(data []byte, sampleRate float64) Ranges {
	if data == nil {
		return Ranges{}
	}
	bassEnd := binFor(bassMaxHz, sampleRate, len(data))
	midEnd := binFor(midMaxHz, sampleRate, len(data))

	var sums, counts [3]int
	for i, v := range data {
		k := 2
		if i < bassEnd {
			k = 0
		} else if i < midEnd {
			k = 1
		}
		sums[k] += int(v)
		counts[k]++
	}
	level := func(k int) int {
		if counts[k] == 0 {
			return 0
		}
		return percentOf(float64(sums[k]) / float64(counts[k]))
	}
	return Ranges{Bass: level(0), Mid: level(1), Treble: level(2)}
}

// Bands returns the seven SpectrumBands levels.
func (a *SpectralAnalyzer) Bands() []BandLevel {
	return bandLevels(a.src.FrequencyData(), a.src.SampleRate(), SpectrumBands)
}

// Waveform resamples the time-domain snapshot to points values in [-1, 1].
func (a *SpectralAnalyzer) Waveform(points int) []float64 {
	if points <= 0 {
		points = DefaultWaveformPoints
	}
	return waveform(a.src.WaveformData(), points)
}

func waveform(data []byte, points int) []float64 {
	out := make([]float64, points)
	if len(data) == 0 {
		return out
	}
	step := max(len(data)/points, 1)
	for i := range out {
		idx := i * step
		if idx >= len(data) {
			break
		}
		out[i] = (float64(data[idx]) - 128) / 128
	}
	return out
}

// Spectrum groups the spectrum into n labelled bands of equal bin width.
func (a *SpectralAnalyzer) Spectrum(n int) []SpectrumBand {
	if n <= 0 {
		n = DefaultSpectrumBands
	}
	return a.spectrum(a.src.FrequencyData(), n)
}

func (a *SpectralAnalyzer) spectrum(data []byte, n int) []SpectrumBand {
	per := len(data) / n
	if data == nil || per == 0 {
		return nil
	}
	out := make([]SpectrumBand, n)
	for i := range out {
		start := i * per
		sum := 0
		for _, v := range data[start : start+per] {
			sum += int(v)
		}
		freq := a.src.IndexToFrequency(start) + a.src.IndexToFrequency(per)/2
		out[i] = SpectrumBand{
			Frequency: int(roundHalfUp(freq)),
			Label:     FormatFrequency(freq),
			Amplitude: percentOf(float64(sum) / float64(per)),
		}
	}
	return out
}

// LogSpectrum splits lo..hi Hz into n logarithmically spaced bands. Each
// band is labelled with its lower edge in the compact form "63Hz" or
// "1.3k".
func (a *SpectralAnalyzer) LogSpectrum(n int, lo, hi float64) []SpectrumBand {
	if n <= 0 || lo <= 0 || hi <= lo {
		return nil
	}
	data := a.src.FrequencyData()
	sr := a.src.SampleRate()
	logMin, logMax := math.Log10(lo), math.Log10(hi)
	edge := func(i int) float64 {
		return math.Pow(10, logMin+float64(i)/float64(n)*(logMax-logMin))
	}

	out := make([]SpectrumBand, n)
	for i := range out {
		low, high := edge(i), edge(i+1)
		out[i] = SpectrumBand{
			Frequency: int(roundHalfUp(low)),
			Label:     compactFrequency(low),
		}
		if data != nil {
			out[i].Amplitude = bandAmplitude(data, sr, low, high)
		}
	}
	return out
}

// SoundDetected reports whether the volume exceeds threshold (0..100).
func (a *SpectralAnalyzer) SoundDetected(threshold int) bool {
	return a.src.Volume() > threshold
}

// Summarize reads one snapshot and derives the full spectrum view from it.
// It returns nil when the source has no snapshot.
func (a *SpectralAnalyzer) Summarize() *Summary {
	data := a.src.FrequencyData()
	if data == nil {
		return nil
	}
	sr := a.src.SampleRate()
	s := &Summary{
		Bars:     bars(data, a.BarCount),
		Dominant: a.dominant(data),
		Ranges:   ranges(data, sr),
		Bands:    bandLevels(data, sr, SpectrumBands),
		Volume:   a.src.Volume(),
		Waveform: a.Waveform(DefaultWaveformPoints),
		Spectrum: a.spectrum(data, DefaultSpectrumBands),
	}
	s.Sound = s.Volume > a.SoundThreshold
	if loudest, ok := DominantBand(s.Bands); ok {
		s.Loudest = loudest.Label
	}
	if s.Dominant.Frequency > 0 {
		n := FrequencyToNote(float64(s.Dominant.Frequency))
		s.Peak = &n
	}
	return s
}

// FormatFrequency labels a frequency as "440 Hz" below 1 kHz and with one
// decimal and an SI prefix above, e.g. "1.5 kHz".
func FormatFrequency(f float64) string {
	if f < 1000 {
		return fmt.Sprintf("%d Hz", int(roundHalfUp(f)))
	}
	v, prefix := humanize.ComputeSI(f)
	return fmt.Sprintf("%.1f %sHz", v, prefix)
}

func compactFrequency(f float64) string {
	if f < 1000 {
		return fmt.Sprintf("%dHz", int(roundHalfUp(f)))
	}
	v, _ := humanize.ComputeSI(f)
	return fmt.Sprintf("%.1fk", v)
}
