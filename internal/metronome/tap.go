package metronome

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"practice/internal/config"
)

// TapWindow is how far back taps count towards the tempo.
const TapWindow = 3 * time.Second

// Tapper turns tap times into a tempo.
type Tapper struct {
	taps []time.Time
}

func NewTapper() *Tapper { return &Tapper{} }

// Tap records a tap. Once two or more taps fall within TapWindow, the mean
// interval gives the tempo; ok is false when there are too few taps or the
// tempo is outside [40, 240].
func (t *Tapper) Tap(now time.Time) (bpm int, ok bool) {
	t.taps = append(t.taps, now)
	if len(t.taps) < 2 {
		return 0, false
	}

	recent := t.taps[:0]
	for _, tap := range t.taps {
		if now.Sub(tap) < TapWindow {
			recent = append(recent, tap)
		}
	}
	t.taps = recent
	if len(t.taps) < 2 {
		return 0, false
	}

	intervals := make([]float64, len(t.taps)-1)
	for i := 1; i < len(t.taps); i++ {
		intervals[i-1] = float64(t.taps[i].Sub(t.taps[i-1]).Milliseconds())
	}
	avg := stat.Mean(intervals, nil)
	if avg <= 0 {
		return 0, false
	}
	bpm = int(math.Floor(60000/avg + 0.5))
	if bpm < config.MinBPM || bpm > config.MaxBPM {
		return bpm, false
	}
	return bpm, true
}

// Reset forgets all taps.
func (t *Tapper) Reset() { t.taps = t.taps[:0] }
