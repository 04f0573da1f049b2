package analysis

import (
	"testing"
	"time"

	"practice/pkg/utils"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time           { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// kickSpectrum fills the 60-250 Hz bins with level and everything else
// with a low floor.
func kickSpectrum(level byte) []byte {
	s := make([]byte, testBins)
	for i := range s {
		s[i] = 5
	}
	start := binFor(BeatLowHz, testSampleRate, testBins)
	end := binFor(BeatHighHz, testSampleRate, testBins)
	for i := start; i < end; i++ {
		s[i] = level
	}
	return s
}

// runSpikeTrain polls every 50ms for the given duration and puts a kick
// every period.
func runSpikeTrain(d *BeatDetector, clock *stepClock, period, total time.Duration) (beats int) {
	src := utils.NewFakeSource(testSampleRate, kickSpectrum(20), nil)
	const poll = 50 * time.Millisecond
	every := int(period / poll)
	for i := range int(total / poll) {
		level := byte(20)
		if i%every == 0 {
			level = 200
		}
		src.SetSpectrum(kickSpectrum(level))
		if r := d.Analyze(src); r != nil && r.BeatDetected {
			beats++
		}
		clock.advance(poll)
	}
	return beats
}

func TestBeatDetector120BPM(t *testing.T) {
	clock := &stepClock{t: time.Unix(1000, 0)}
	d := NewBeatDetector().WithClock(clock.now)

	beats := runSpikeTrain(d, clock, 500*time.Millisecond, 4*time.Second)
	if beats < 3 {
		t.Fatalf("detected %d beats, want at least 3", beats)
	}
	if !d.Ready() {
		t.Fatal("detector should be ready after several beats")
	}
	if bpm := d.BPM(); bpm < 118 || bpm > 122 {
		t.Errorf("BPM = %d, want 120±2", bpm)
	}
	if conf := d.Confidence(); conf <= 80 {
		t.Errorf("confidence = %d, want > 80", conf)
	}
}

func TestBeatDetectorReportsEveryPoll(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	d := NewBeatDetector().WithClock(clock.now)
	src := utils.NewFakeSource(testSampleRate, kickSpectrum(255), nil)

	r := d.Analyze(src)
	if r == nil {
		t.Fatal("Analyze returned nil with a spectrum available")
	}
	if r.BeatDetected {
		t.Error("the first frame is its own average and cannot be a beat")
	}
	if r.Energy != 100 {
		t.Errorf("energy = %d, want 100", r.Energy)
	}

	_ = src.Stop()
	if d.Analyze(src) != nil {
		t.Error("Analyze should return nil without a snapshot")
	}
}

func TestBeatDetectorMinimumGap(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	d := NewBeatDetector().WithClock(clock.now)
	// Kicks every 200ms are closer than the 300ms minimum gap, so at most
	// every other one is accepted.
	beats := runSpikeTrain(d, clock, 200*time.Millisecond, 2*time.Second)
	if beats > 5 {
		t.Errorf("accepted %d beats in 2s at a 300ms minimum gap", beats)
	}
}

func TestBeatDetectorDiscardsSlowTempo(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	d := NewBeatDetector().WithClock(clock.now)
	// One kick every 2s is 30 BPM, below the accepted range.
	runSpikeTrain(d, clock, 2*time.Second, 5*time.Second)
	if !d.Ready() {
		t.Fatal("beats should still be recorded")
	}
	if d.BPM() != 0 {
		t.Errorf("BPM = %d, want out-of-range estimate discarded", d.BPM())
	}
}

func TestBeatDetectorReset(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	d := NewBeatDetector().WithClock(clock.now)
	runSpikeTrain(d, clock, 500*time.Millisecond, 3*time.Second)
	d.Reset()
	if d.BPM() != 0 || d.Confidence() != 0 || d.Ready() {
		t.Errorf("after Reset: bpm=%d conf=%d ready=%v", d.BPM(), d.Confidence(), d.Ready())
	}
}

func TestBandEnergyEmptyRange(t *testing.T) {
	// Too few bins for the kick band to cover a whole bin.
	if e := bandEnergy(make([]byte, 4), testSampleRate); e != 0 {
		t.Errorf("energy = %f, want 0", e)
	}
}
