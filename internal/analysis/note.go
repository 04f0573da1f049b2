package analysis

import (
	"math"
	"strconv"
)

// ReferenceA4 is the concert pitch all note math is relative to.
const ReferenceA4 = 440.0

// NoteNames is the chromatic scale starting at C.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is a pitch class with an octave, e.g. A4.
type Note struct {
	Name      string
	Octave    int
	MIDI      int
	Frequency float64
}

// String returns the scientific pitch name, e.g. "C#3".
func (n Note) String() string {
	return n.Name + strconv.Itoa(n.Octave)
}

// semitonesFromA4 returns the fractional semitone distance of f from A4.
func semitonesFromA4(f float64) float64 {
	return 12 * math.Log2(f/ReferenceA4)
}

// FrequencyToNote maps a frequency to the nearest equal-tempered note.
// f must be positive.
func FrequencyToNote(f float64) Note {
	midi := int(roundHalfUp(semitonesFromA4(f))) + 69
	octave := int(math.Floor(float64(midi)/12)) - 1
	return Note{
		Name:      NoteNames[((midi%12)+12)%12],
		Octave:    octave,
		MIDI:      midi,
		Frequency: f,
	}
}

// NoteIndex returns the position of name in NoteNames, or -1.
func NoteIndex(name string) int {
	for i, n := range NoteNames {
		if n == name {
			return i
		}
	}
	return -1
}

// NoteFrequency returns the equal-tempered frequency of name in octave.
// ok is false when name is not one of NoteNames.
func NoteFrequency(name string, octave int) (freq float64, ok bool) {
	idx := NoteIndex(name)
	if idx < 0 {
		return 0, false
	}
	midi := (octave+1)*12 + idx
	return ReferenceA4 * math.Pow(2, float64(midi-69)/12), true
}

// CentsOff returns how far f is from its nearest note, floored to whole
// cents in [-50, 50).
func CentsOff(f float64) int {
	x := semitonesFromA4(f)
	return int(math.Floor((x - roundHalfUp(x)) * 100))
}

// InTune reports whether |cents| is below threshold.
func InTune(cents, threshold int) bool {
	if cents < 0 {
		cents = -cents
	}
	return cents < threshold
}
