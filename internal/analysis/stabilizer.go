package analysis

// Stabilizer defaults.
const (
	DefaultStableRepeats    = 3
	DefaultStableConfidence = 50
	DefaultChordHistory     = 5
	DefaultResetAfterMisses = 10
)

// ChordStabilizer smooths per-poll chord results for display. A chord is
// shown only after the same symbol has been seen on MinRepeats further
// consecutive polls with confidence above MinConfidence, and the display
// clears after more than ResetAfter polls without one.
type ChordStabilizer struct {
	MinRepeats    int
	MinConfidence int
	HistorySize   int
	ResetAfter    int

	last      string
	stability int
	misses    int
	current   *Chord
	history   []string
}

func NewChordStabilizer() *ChordStabilizer {
	return &ChordStabilizer{
		MinRepeats:    DefaultStableRepeats,
		MinConfidence: DefaultStableConfidence,
		HistorySize:   DefaultChordHistory,
		ResetAfter:    DefaultResetAfterMisses,
	}
}

// Update feeds one poll's result and returns the chord to display, which
// may be nil.
func (s *ChordStabilizer) Update(c *Chord) *Chord {
	if c == nil || c.Confidence <= s.MinConfidence {
		s.misses++
		if s.misses > s.ResetAfter {
			s.current = nil
			s.last = ""
			s.stability = 0
		}
		return s.current
	}

	s.misses = 0
	symbol := c.Symbol()
	if symbol == s.last {
		s.stability++
	} else {
		s.stability = 0
	}
	s.last = symbol

	if s.stability >= s.MinRepeats {
		if s.current.Symbol() != symbol {
			s.pushHistory(symbol)
		}
		s.current = c
	}
	return s.current
}

func (s *ChordStabilizer) pushHistory(symbol string) {
	if len(s.history) > 0 && s.history[0] == symbol {
		return
	}
	s.history = append([]string{symbol}, s.history...)
	if len(s.history) > s.HistorySize {
		s.history = s.history[:s.HistorySize]
	}
}

// Current returns the chord on display, or nil.
func (s *ChordStabilizer) Current() *Chord { return s.current }

// History returns recently displayed symbols, newest first.
func (s *ChordStabilizer) History() []string {
	return append([]string(nil), s.history...)
}

// Reset clears display state and history.
func (s *ChordStabilizer) Reset() {
	s.last, s.stability, s.misses = "", 0, 0
	s.current = nil
	s.history = nil
}

// ConfidenceClass buckets a confidence for display.
func ConfidenceClass(confidence int) string {
	switch {
	case confidence >= 80:
		return "high"
	case confidence >= 60:
		return "medium"
	default:
		return "low"
	}
}
