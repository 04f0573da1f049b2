package analysis

import "math"

// Detector range and autocorrelation gates.
const (
	MinPitchHz = 50.0
	MaxPitchHz = 2000.0

	silenceRMS      = 0.01
	goodCorrelation = 0.9
	minCorrelation  = 0.01
)

// Pitch is one tuner reading.
type Pitch struct {
	Frequency float64
	Note      Note
	Cents     int
	InTune    bool
}

// PitchDetector estimates the fundamental of the current waveform by
// autocorrelation. Not safe for concurrent use; it reuses its buffer.
type PitchDetector struct {
	InTuneCents int
	buf         []float64
}

func NewPitchDetector(inTuneCents int) *PitchDetector {
	if inTuneCents <= 0 {
		inTuneCents = 5
	}
	return &PitchDetector{InTuneCents: inTuneCents}
}

// Detect returns the pitch of the current waveform, or nil for silence,
// no periodicity, or a frequency outside [MinPitchHz, MaxPitchHz].
func (d *PitchDetector) Detect(src Source) *Pitch {
	data := src.WaveformData()
	if data == nil {
		return nil
	}

	if cap(d.buf) < len(data) {
		d.buf = make([]float64, len(data))
	}
	d.buf = d.buf[:len(data)]
	for i, v := range data {
		d.buf[i] = (float64(v) - 128) / 128
	}

	f := AutoCorrelate(d.buf, src.SampleRate())
	if f < MinPitchHz || f > MaxPitchHz {
		return nil
	}
	cents := CentsOff(f)
	return &Pitch{
		Frequency: f,
		Note:      FrequencyToNote(f),
		Cents:     cents,
		InTune:    InTune(cents, d.InTuneCents),
	}
}

// AutoCorrelate returns the fundamental frequency of buf in Hz, or -1 when
// the signal is too quiet or has no clear period. buf holds samples in
// [-1, 1].
func AutoCorrelate(buf []float64, sampleRate float64) float64 {
	size := len(buf)
	half := size / 2
	if half == 0 || sampleRate <= 0 {
		return -1
	}

	var rms float64
	for _, v := range buf {
		rms += v * v
	}
	rms = math.Sqrt(rms / float64(size))
	if rms < silenceRMS {
		return -1
	}

	bestOffset := -1
	bestCorrelation := 0.0
	foundGood := false
	lastCorrelation := 1.0

	for offset := 1; offset < half; offset++ {
		var diff float64
		for i := 0; i < half; i++ {
			diff += math.Abs(buf[i] - buf[i+offset])
		}
		correlation := 1 - diff/float64(half)

		if correlation > goodCorrelation && correlation > lastCorrelation {
			foundGood = true
			if correlation > bestCorrelation {
				bestCorrelation = correlation
				bestOffset = offset
			}
		} else if foundGood {
			break
		}
		lastCorrelation = correlation
	}

	if bestCorrelation > minCorrelation {
		return sampleRate / float64(bestOffset)
	}
	return -1
}
