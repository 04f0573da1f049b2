package analysis

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	applog "practice/internal/log"
)

// Beat detection parameters.
const (
	BeatLowHz       = 60.0
	BeatHighHz      = 250.0
	energyHistory   = 43
	beatHistory     = 8
	energyThreshold = 1.5
	minBeatGap      = 300 * time.Millisecond
	MinBPM          = 40
	MaxBPM          = 240
)

// BeatResult is reported on every poll.
type BeatResult struct {
	BeatDetected bool `json:"beatDetected"`
	BPM          int  `json:"bpm"`
	Confidence   int  `json:"confidence"`
	Energy       int  `json:"energy"` // 0..100
}

// BeatDetector finds kick/bass onsets as energy spikes in the 60-250 Hz
// band against a rolling average, and estimates tempo from the spacing of
// the last few onsets.
type BeatDetector struct {
	now func() time.Time
	log *applog.Logger

	mu         sync.Mutex
	energies   []float64
	beatTimes  []time.Time
	lastBeat   time.Time
	bpm        int
	confidence float64
}

func NewBeatDetector() *BeatDetector {
	return &BeatDetector{
		now:       time.Now,
		log:       applog.For("beat"),
		energies:  make([]float64, 0, energyHistory),
		beatTimes: make([]time.Time, 0, beatHistory),
	}
}

// WithClock replaces the time source, for tests.
func (d *BeatDetector) WithClock(now func() time.Time) *BeatDetector {
	d.now = now
	return d
}

// Analyze processes one spectrum snapshot. It returns nil only when the
// source has no snapshot.
func (d *BeatDetector) Analyze(src Source) *BeatResult {
	data := src.FrequencyData()
	if data == nil {
		return nil
	}
	energy := bandEnergy(data, src.SampleRate())

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.energies) == energyHistory {
		d.energies = append(d.energies[:0], d.energies[1:]...)
	}
	d.energies = append(d.energies, energy)
	avg := stat.Mean(d.energies, nil)

	now := d.now()
	detected := false
	if energy > avg*energyThreshold && (d.lastBeat.IsZero() || now.Sub(d.lastBeat) > minBeatGap) {
		detected = true
		d.lastBeat = now
		if len(d.beatTimes) == beatHistory {
			d.beatTimes = append(d.beatTimes[:0], d.beatTimes[1:]...)
		}
		d.beatTimes = append(d.beatTimes, now)
		d.estimate()
	}

	return &BeatResult{
		BeatDetected: detected,
		BPM:          d.bpm,
		Confidence:   int(roundHalfUp(d.confidence)),
		Energy:       percentOf(energy),
	}
}

// estimate updates bpm and confidence from the recorded beat times.
// Estimates outside [MinBPM, MaxBPM] are discarded.
func (d *BeatDetector) estimate() {
	if len(d.beatTimes) < 2 {
		return
	}
	intervals := make([]float64, len(d.beatTimes)-1)
	for i := 1; i < len(d.beatTimes); i++ {
		intervals[i-1] = float64(d.beatTimes[i].Sub(d.beatTimes[i-1])) / float64(time.Millisecond)
	}
	avg, std := stat.PopMeanStdDev(intervals, nil)
	if avg <= 0 {
		return
	}
	bpm := int(roundHalfUp(60000 / avg))
	if bpm < MinBPM || bpm > MaxBPM {
		d.log.Debugf("discarding tempo estimate %d bpm", bpm)
		return
	}
	d.bpm = bpm
	d.confidence = clamp((1-std/avg)*100, 0, 100)
}

// bandEnergy is the RMS level of the bins covering BeatLowHz..BeatHighHz.
func bandEnergy(data []byte, sampleRate float64) float64 {
	start := binFor(BeatLowHz, sampleRate, len(data))
	end := min(binFor(BeatHighHz, sampleRate, len(data)), len(data))
	if end <= start {
		return 0
	}
	var sum float64
	for _, v := range data[start:end] {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(end-start))
}

// Reset clears all history and estimates.
func (d *BeatDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.energies = d.energies[:0]
	d.beatTimes = d.beatTimes[:0]
	d.lastBeat = time.Time{}
	d.bpm = 0
	d.confidence = 0
}

func (d *BeatDetector) BPM() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bpm
}

func (d *BeatDetector) Confidence() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(roundHalfUp(d.confidence))
}

// Ready reports whether at least two beats have been recorded.
func (d *BeatDetector) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.beatTimes) >= 2
}
