package analysis

import (
	"slices"
)

// Note extraction limits.
const (
	ChordMinHz           = 80.0
	ChordMaxHz           = 1200.0
	DefaultNoteThreshold = 10
	DefaultChordThresh   = 15
	maxChordNotes        = 6
	minTemplateScore     = 0.7
)

// Fallback labels and their fixed confidences.
const (
	PowerChord   = "Power Chord"
	UnknownChord = "Unknown"

	powerChordConfidence   = 80
	unknownChordConfidence = 50
)

type chordTemplate struct {
	name      string
	symbol    string
	intervals []int
}

// chordTemplates are matched in order; the first of equally scoring
// templates wins.
var chordTemplates = []chordTemplate{
	{"Major", "", []int{0, 4, 7}},
	{"Minor", "m", []int{0, 3, 7}},
	{"Diminished", "dim", []int{0, 3, 6}},
	{"Augmented", "aug", []int{0, 4, 8}},
	{"Sus2", "sus2", []int{0, 2, 7}},
	{"Sus4", "sus4", []int{0, 5, 7}},
	{"Major 7", "maj7", []int{0, 4, 7, 11}},
	{"Dominant 7", "7", []int{0, 4, 7, 10}},
	{"Minor 7", "m7", []int{0, 3, 7, 10}},
	{"Minor Major 7", "m(maj7)", []int{0, 3, 7, 11}},
	{"Diminished 7", "dim7", []int{0, 3, 6, 9}},
	{"Half Diminished", "m7♭5", []int{0, 3, 6, 10}},
	{"Augmented 7", "aug7", []int{0, 4, 8, 10}},
	{"Major 6", "6", []int{0, 4, 7, 9}},
	{"Minor 6", "m6", []int{0, 3, 7, 9}},
	{"Major 9", "maj9", []int{0, 4, 7, 11, 14}},
	{"Dominant 9", "9", []int{0, 4, 7, 10, 14}},
	{"Add 9", "add9", []int{0, 4, 7, 14}},
}

var fallbackSymbols = map[string]string{
	PowerChord:   "5",
	UnknownChord: "?",
}

// ChordTypes returns the template names in matching order.
func ChordTypes() []string {
	names := make([]string, len(chordTemplates))
	for i, t := range chordTemplates {
		names[i] = t.name
	}
	return names
}

// NoteObservation is one spectral peak mapped to a note.
type NoteObservation struct {
	Note
	Amplitude byte
}

// Chord is a recognised chord. Intervals are ascending semitone offsets
// from Root, including 0.
type Chord struct {
	Root       string
	Type       string
	Notes      []string
	Intervals  []int
	Confidence int
}

// Symbol returns the lead-sheet symbol, e.g. "Cm7". nil gives "--".
func (c *Chord) Symbol() string {
	if c == nil {
		return "--"
	}
	for _, t := range chordTemplates {
		if t.name == c.Type {
			return c.Root + t.symbol
		}
	}
	return c.Root + fallbackSymbols[c.Type]
}

// FullName returns root and quality, e.g. "C Minor 7".
func (c *Chord) FullName() string {
	if c == nil {
		return "No chord detected"
	}
	return c.Root + " " + c.Type
}

// DetectNotes returns up to six notes found as spectral peaks between
// ChordMinHz and ChordMaxHz, loudest first. A peak must exceed threshold
// and both neighbouring bins. Occurrences of the same pitch class within
// an octave of each other collapse onto the louder one.
func DetectNotes(src Source, threshold int) []NoteObservation {
	data := src.FrequencyData()
	if data == nil {
		return nil
	}

	var notes []NoteObservation
	for i := 1; i < len(data)-1; i++ {
		freq := src.IndexToFrequency(i)
		if freq < ChordMinHz || freq > ChordMaxHz {
			continue
		}
		amp := data[i]
		if int(amp) <= threshold || amp <= data[i-1] || amp <= data[i+1] {
			continue
		}

		note := FrequencyToNote(freq)
		existing := slices.IndexFunc(notes, func(n NoteObservation) bool {
			return n.Name == note.Name && abs(n.Octave-note.Octave) <= 1
		})
		if existing >= 0 {
			if amp <= notes[existing].Amplitude {
				continue
			}
			notes = slices.Delete(notes, existing, existing+1)
		}
		notes = append(notes, NoteObservation{Note: note, Amplitude: amp})
	}

	slices.SortStableFunc(notes, func(a, b NoteObservation) int {
		return int(b.Amplitude) - int(a.Amplitude)
	})
	if len(notes) > maxChordNotes {
		notes = notes[:maxChordNotes]
	}
	return notes
}

// MatchTemplate scores observed intervals against a template in [0, 1].
// Extra observed tones cost 0.1 each; an observation smaller than the
// template scores 0.
func MatchTemplate(intervals, template []int) float64 {
	if len(intervals) < len(template) {
		return 0
	}
	matches := 0
	for _, iv := range template {
		if slices.Contains(intervals, iv) {
			matches++
		}
	}
	extra := len(intervals) - len(template)
	score := float64(matches)/float64(len(template)) - float64(extra)*0.1
	return clamp(score, 0, 1)
}

// ChordDetector names the chord formed by the loudest spectral peaks.
type ChordDetector struct {
	Threshold int
}

func NewChordDetector(threshold int) *ChordDetector {
	if threshold <= 0 {
		threshold = DefaultChordThresh
	}
	return &ChordDetector{Threshold: threshold}
}

// Detect returns the best matching chord, or nil when fewer than two
// distinct pitch classes are sounding.
func (d *ChordDetector) Detect(src Source) *Chord {
	notes := DetectNotes(src, d.Threshold)
	if len(notes) < 2 {
		return nil
	}

	var unique []string
	for _, n := range notes {
		if !slices.Contains(unique, n.Name) {
			unique = append(unique, n.Name)
		}
	}
	if len(unique) < 2 {
		return nil
	}

	root := unique[0]
	rootIdx := NoteIndex(root)
	intervals := make([]int, len(unique))
	for i, name := range unique {
		intervals[i] = (NoteIndex(name) - rootIdx + 12) % 12
	}
	slices.Sort(intervals)

	chord := &Chord{Root: root, Notes: unique, Intervals: intervals}
	best := 0.0
	for _, t := range chordTemplates {
		score := MatchTemplate(intervals, t.intervals)
		if score > best && score >= minTemplateScore {
			best = score
			chord.Type = t.name
			chord.Confidence = int(roundHalfUp(score * 100))
		}
	}
	if chord.Type != "" {
		return chord
	}

	if len(intervals) == 2 && slices.Contains(intervals, 7) {
		chord.Type, chord.Confidence = PowerChord, powerChordConfidence
	} else {
		chord.Type, chord.Confidence = UnknownChord, unknownChordConfidence
	}
	return chord
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
