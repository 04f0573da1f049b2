package app

import (
	"math"
	"sync"

	"practice/internal/analysis"
	"practice/internal/metronome"
	"practice/internal/transport/udp"
)

// Tool turns one snapshot into a result. Poll returns nil when there is
// nothing to publish for this tick.
type Tool interface {
	Name() string
	Poll(src analysis.Source) any
	Reset()
}

// signalGate is implemented by sources that know whether the input is
// above the noise floor.
type signalGate interface {
	SignalPresent() bool
}

// TunerReading is what the tuner publishes every poll.
type TunerReading struct {
	Note           string         `json:"note"`
	Frequency      int            `json:"frequency"`
	Cents          int            `json:"cents"`
	Status         string         `json:"status"`
	Needle         float64        `json:"needle"`
	Reference      *ReferenceNote `json:"reference,omitempty"`
	ReferenceCents int            `json:"referenceCents,omitempty"`
}

// Tuner reports the detected note, its offset and the nearest reference
// note of the selected instrument.
type Tuner struct {
	detector   *analysis.PitchDetector
	instrument Instrument
	tolerance  int
}

func NewTuner(instrument Instrument, inTuneCents int) *Tuner {
	d := analysis.NewPitchDetector(inTuneCents)
	return &Tuner{detector: d, instrument: instrument, tolerance: d.InTuneCents}
}

func (t *Tuner) Name() string { return "tuner" }

func (t *Tuner) Instrument() Instrument { return t.instrument }

func (t *Tuner) Poll(src analysis.Source) any {
	if g, ok := src.(signalGate); ok && !g.SignalPresent() {
		return listening()
	}
	p := t.detector.Detect(src)
	if p == nil {
		return listening()
	}

	r := &TunerReading{
		Note:      p.Note.String(),
		Frequency: int(math.Round(p.Frequency)),
		Cents:     p.Cents,
		Status:    TuneStatus(p.Cents, t.tolerance),
		Needle:    NeedleAngle(p.Cents),
	}
	if ref, cents := t.instrument.Nearest(p.Frequency); ref.Name != "" {
		r.Reference = &ref
		r.ReferenceCents = cents
	}
	return r
}

func (t *Tuner) Reset() {}

func listening() *TunerReading {
	return &TunerReading{Note: "--", Status: StatusListening}
}

// ChordReading is the stabilised chord display.
type ChordReading struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Notes      []string `json:"notes"`
	Confidence int      `json:"confidence"`
	Class      string   `json:"class"`
	History    []string `json:"history"`
}

// Chords detects a chord each poll and publishes what the stabiliser
// decides to show.
type Chords struct {
	detector   *analysis.ChordDetector
	stabilizer *analysis.ChordStabilizer
}

func NewChords(threshold int) *Chords {
	return &Chords{
		detector:   analysis.NewChordDetector(threshold),
		stabilizer: analysis.NewChordStabilizer(),
	}
}

func (c *Chords) Name() string { return "chords" }

func (c *Chords) Poll(src analysis.Source) any {
	shown := c.stabilizer.Update(c.detector.Detect(src))
	r := &ChordReading{
		Symbol:  shown.Symbol(),
		Name:    shown.FullName(),
		Notes:   []string{},
		History: c.stabilizer.History(),
	}
	if shown != nil {
		r.Notes = shown.Notes
		r.Confidence = shown.Confidence
	}
	r.Class = analysis.ConfidenceClass(r.Confidence)
	return r
}

func (c *Chords) Reset() { c.stabilizer.Reset() }

// BPMReading adds the tempo marking to a beat result.
type BPMReading struct {
	analysis.BeatResult
	Marking string `json:"marking,omitempty"`
}

// BPM tracks onsets and tempo across polls.
type BPM struct {
	detector *analysis.BeatDetector
}

func NewBPM(detector *analysis.BeatDetector) *BPM {
	if detector == nil {
		detector = analysis.NewBeatDetector()
	}
	return &BPM{detector: detector}
}

func (b *BPM) Name() string { return "bpm" }

func (b *BPM) Poll(src analysis.Source) any {
	res := b.detector.Analyze(src)
	if res == nil {
		return nil
	}
	r := &BPMReading{BeatResult: *res}
	if res.BPM > 0 {
		r.Marking = metronome.Marking(res.BPM)
	}
	return r
}

func (b *BPM) Reset() { b.detector.Reset() }

// Spectrum publishes the full spectral summary. The bars of the latest
// poll are kept for BarFrames.
type Spectrum struct {
	BarCount       int
	SoundThreshold int
	Sensitivity    int // percent applied to bar heights

	mu   sync.Mutex
	last []int
}

func NewSpectrum(barCount, soundThreshold, sensitivity int) *Spectrum {
	if sensitivity <= 0 {
		sensitivity = 100
	}
	return &Spectrum{BarCount: barCount, SoundThreshold: soundThreshold, Sensitivity: sensitivity}
}

func (s *Spectrum) Name() string { return "spectrum" }

func (s *Spectrum) Poll(src analysis.Source) any {
	a := analysis.NewSpectralAnalyzer(src, s.BarCount)
	a.SoundThreshold = s.SoundThreshold
	sum := a.Summarize()
	if sum == nil {
		return nil
	}
	for i, v := range sum.Bars {
		sum.Bars[i] = scaleBar(v, s.Sensitivity)
	}
	s.mu.Lock()
	s.last = append(s.last[:0], sum.Bars...)
	s.mu.Unlock()
	return sum
}

func (s *Spectrum) Reset() {
	s.mu.Lock()
	s.last = s.last[:0]
	s.mu.Unlock()
}

// appendLast appends the latest polled bars, scaled to [0, 1], to dst.
func (s *Spectrum) appendLast(dst []float32) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.last) == 0 {
		return nil
	}
	for _, v := range s.last {
		dst = append(dst, float32(v)/100)
	}
	return dst
}

func scaleBar(v, sensitivity int) int {
	return min(v*sensitivity/100, 100)
}

// BarFrames feeds the bars of the spectrum tool's latest poll to a UDP
// publisher, as fractions in [0, 1]. The source is never read here, so the
// analyser's smoothing advances once per poll. Ticks before the first poll
// are skipped.
func BarFrames(s *Spectrum) udp.FrameFunc {
	return func(dst []float32) []float32 {
		return s.appendLast(dst[:0])
	}
}

var (
	_ Tool = (*Tuner)(nil)
	_ Tool = (*Chords)(nil)
	_ Tool = (*BPM)(nil)
	_ Tool = (*Spectrum)(nil)
)
