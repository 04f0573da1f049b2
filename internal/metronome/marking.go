package metronome

// Marking returns the Italian tempo marking for bpm.
func Marking(bpm int) string {
	switch {
	case bpm < 60:
		return "Largo"
	case bpm < 76:
		return "Adagio"
	case bpm < 108:
		return "Andante"
	case bpm < 120:
		return "Moderato"
	case bpm < 168:
		return "Allegro"
	case bpm < 200:
		return "Presto"
	default:
		return "Prestissimo"
	}
}
