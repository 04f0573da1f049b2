package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// MaxNeedleCents is the deflection at which the tuner needle pins.
const MaxNeedleCents = 50

// instrumentMatchThreshold is the lowest Jaro-Winkler score accepted when
// an instrument name is not an exact match.
const instrumentMatchThreshold = 0.8

// ReferenceNote is one open string or reference pitch.
type ReferenceNote struct {
	Name      string  `json:"name"`
	Frequency float64 `json:"frequency"`
	String    string  `json:"string,omitempty"`
}

func (r ReferenceNote) String() string {
	if r.String == "" {
		return fmt.Sprintf("%s %.0f Hz", r.Name, r.Frequency)
	}
	return fmt.Sprintf("%s (%s) %.0f Hz", r.Name, r.String, r.Frequency)
}

// Instrument is a named set of reference notes.
type Instrument struct {
	Name  string          `json:"name"`
	Notes []ReferenceNote `json:"notes"`
}

var instruments = []Instrument{
	{Name: "chromatic", Notes: []ReferenceNote{
		{Name: "C", Frequency: 261.63},
		{Name: "D", Frequency: 293.66},
		{Name: "E", Frequency: 329.63},
		{Name: "F", Frequency: 349.23},
		{Name: "G", Frequency: 392.00},
		{Name: "A", Frequency: 440.00},
		{Name: "B", Frequency: 493.88},
	}},
	{Name: "guitar", Notes: []ReferenceNote{
		{Name: "E", Frequency: 82.41, String: "6th"},
		{Name: "A", Frequency: 110.00, String: "5th"},
		{Name: "D", Frequency: 146.83, String: "4th"},
		{Name: "G", Frequency: 196.00, String: "3rd"},
		{Name: "B", Frequency: 246.94, String: "2nd"},
		{Name: "E", Frequency: 329.63, String: "1st"},
	}},
	{Name: "bass", Notes: []ReferenceNote{
		{Name: "E", Frequency: 41.20, String: "4th"},
		{Name: "A", Frequency: 55.00, String: "3rd"},
		{Name: "D", Frequency: 73.42, String: "2nd"},
		{Name: "G", Frequency: 98.00, String: "1st"},
	}},
	{Name: "ukulele", Notes: []ReferenceNote{
		{Name: "G", Frequency: 392.00, String: "4th"},
		{Name: "C", Frequency: 261.63, String: "3rd"},
		{Name: "E", Frequency: 329.63, String: "2nd"},
		{Name: "A", Frequency: 440.00, String: "1st"},
	}},
	{Name: "violin", Notes: []ReferenceNote{
		{Name: "G", Frequency: 196.00, String: "4th"},
		{Name: "D", Frequency: 293.66, String: "3rd"},
		{Name: "A", Frequency: 440.00, String: "2nd"},
		{Name: "E", Frequency: 659.25, String: "1st"},
	}},
}

// InstrumentNames lists the known instruments in display order.
func InstrumentNames() []string {
	names := make([]string, len(instruments))
	for i, inst := range instruments {
		names[i] = inst.Name
	}
	return names
}

// LookupInstrument finds an instrument by name. Near misses such as
// "gutiar" or "Violin " resolve to the closest known name.
func LookupInstrument(name string) (Instrument, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return instruments[0], nil
	}

	var (
		best  Instrument
		score float64
	)
	for _, inst := range instruments {
		if inst.Name == query {
			return inst, nil
		}
		if s := strutil.Similarity(query, inst.Name, metrics.NewJaroWinkler()); s > score {
			best, score = inst, s
		}
	}
	if score < instrumentMatchThreshold {
		return Instrument{}, fmt.Errorf("unknown instrument %q (known: %s)", name, strings.Join(InstrumentNames(), ", "))
	}
	return best, nil
}

// Nearest returns the reference note closest to freq and the offset from
// it in cents.
func (i Instrument) Nearest(freq float64) (ReferenceNote, int) {
	if freq <= 0 || len(i.Notes) == 0 {
		return ReferenceNote{}, 0
	}
	var (
		best     ReferenceNote
		bestDist = math.Inf(1)
	)
	for _, n := range i.Notes {
		c := 1200 * math.Log2(freq/n.Frequency)
		if math.Abs(c) < bestDist {
			best, bestDist = n, math.Abs(c)
		}
	}
	return best, int(math.Round(1200 * math.Log2(freq/best.Frequency)))
}

// NeedleAngle maps cents to a gauge angle in degrees, pinned at ±90.
func NeedleAngle(cents int) float64 {
	c := min(max(cents, -MaxNeedleCents), MaxNeedleCents)
	return float64(c) / MaxNeedleCents * 90
}

// Tuning status labels.
const (
	StatusListening = "Listening"
	StatusInTune    = "In Tune"
	StatusSharp     = "Sharp"
	StatusFlat      = "Flat"
)

// TuneStatus labels a cents offset given the in-tune tolerance.
func TuneStatus(cents, tolerance int) string {
	switch {
	case cents >= -tolerance && cents <= tolerance:
		return StatusInTune
	case cents > 0:
		return StatusSharp
	default:
		return StatusFlat
	}
}
