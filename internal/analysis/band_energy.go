package analysis

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string  `json:"name"`
	Label  string  `json:"label"`
	LowHz  float64 `json:"lowHz"`
	HighHz float64 `json:"highHz"`
}

// SpectrumBands is the seven-band split. The three-band Ranges view uses
// the same 250 Hz and 2000 Hz edges.
var SpectrumBands = []FrequencyBand{
	{Name: "subBass", Label: "Sub-Bass", LowHz: 20, HighHz: 60},
	{Name: "bass", Label: "Bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", Label: "Low-Mid", LowHz: 250, HighHz: 500},
	{Name: "mid", Label: "Mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", Label: "High-Mid", LowHz: 2000, HighHz: 4000},
	{Name: "presence", Label: "Presence", LowHz: 4000, HighHz: 6000},
	{Name: "brilliance", Label: "Brilliance", LowHz: 6000, HighHz: 20000},
}

// BandLevel is a band's mean amplitude as 0..100.
type BandLevel struct {
	FrequencyBand
	Level int `json:"level"`
}

// bandAmplitude averages bins from floor(low) to floor(high), exclusive,
// and scales the mean to 0..100. Empty ranges are 0.
func bandAmplitude(data []byte, sampleRate, lowHz, highHz float64) int {
	start := max(binFor(lowHz, sampleRate, len(data)), 0)
	end := min(binFor(highHz, sampleRate, len(data)), len(data))
	if end <= start {
		return 0
	}
	sum := 0
	for _, v := range data[start:end] {
		sum += int(v)
	}
	return percentOf(float64(sum) / float64(end-start))
}

// bandLevels measures every band in bands against one snapshot.
func bandLevels(data []byte, sampleRate float64, bands []FrequencyBand) []BandLevel {
	levels := make([]BandLevel, len(bands))
	for i, b := range bands {
		levels[i] = BandLevel{FrequencyBand: b}
		if data != nil {
			levels[i].Level = bandAmplitude(data, sampleRate, b.LowHz, b.HighHz)
		}
	}
	return levels
}

// DominantBand returns the loudest band; the lowest wins ties. ok is false
// for an empty slice.
func DominantBand(levels []BandLevel) (band BandLevel, ok bool) {
	if len(levels) == 0 {
		return BandLevel{}, false
	}
	band = levels[0]
	for _, l := range levels[1:] {
		if l.Level > band.Level {
			band = l
		}
	}
	return band, true
}
