package app

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"practice/internal/analysis"
	"practice/internal/audio"
	"practice/internal/practice"
	"practice/internal/transport"
	"practice/pkg/utils"
)

const (
	testSampleRate = 44100
	testFFTSize    = 2048
	testBins       = testFFTSize / 2
)

var _ audio.AmplitudeSource = (*utils.FakeSource)(nil)

func sineSource(freq float64) *utils.FakeSource {
	wave := utils.WaveformBytes(utils.GenerateSineWave(testFFTSize, testSampleRate, freq))
	return utils.NewFakeSource(testSampleRate, nil, wave)
}

func peakSource(peaks map[float64]byte) *utils.FakeSource {
	return utils.NewFakeSource(testSampleRate, utils.SpectrumWithPeaks(testBins, testSampleRate, peaks), nil)
}

// gatedSource adds a noise gate to a fake source.
type gatedSource struct {
	*utils.FakeSource
	open bool
}

func (g gatedSource) SignalPresent() bool { return g.open }

func opener(src audio.AmplitudeSource) OpenFunc {
	return func(context.Context) (audio.AmplitudeSource, error) { return src, nil }
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTunerReading(t *testing.T) {
	inst, _ := LookupInstrument("chromatic")
	tuner := NewTuner(inst, 5)

	got, ok := tuner.Poll(sineSource(440)).(*TunerReading)
	if !ok {
		t.Fatalf("Poll returned %T", got)
	}
	if got.Note != "A4" || got.Status != StatusInTune {
		t.Errorf("reading = %+v, want A4 in tune", got)
	}
	if got.Frequency < 435 || got.Frequency > 445 {
		t.Errorf("frequency = %d, want about 440", got.Frequency)
	}
	if got.Reference == nil || got.Reference.Name != "A" {
		t.Errorf("reference = %v, want A", got.Reference)
	}
}

func TestTunerListening(t *testing.T) {
	inst, _ := LookupInstrument("guitar")
	tuner := NewTuner(inst, 5)

	silence := make([]byte, testFFTSize)
	for i := range silence {
		silence[i] = 128
	}
	tests := []struct {
		name string
		src  analysis.Source
	}{
		{"silence", utils.NewFakeSource(testSampleRate, nil, silence)},
		{"gate closed", gatedSource{FakeSource: sineSource(440), open: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tuner.Poll(tt.src).(*TunerReading)
			if r.Note != "--" || r.Status != StatusListening || r.Reference != nil {
				t.Errorf("reading = %+v, want listening", r)
			}
		})
	}

	r := tuner.Poll(gatedSource{FakeSource: sineSource(440), open: true}).(*TunerReading)
	if r.Note != "A4" {
		t.Errorf("open gate reading = %+v, want A4", r)
	}
}

func TestChordsStabilise(t *testing.T) {
	chords := NewChords(analysis.DefaultChordThresh)
	src := peakSource(map[float64]byte{261.63: 200, 329.63: 180, 392.00: 170})

	var r *ChordReading
	for i := range 4 {
		r = chords.Poll(src).(*ChordReading)
		if i < 3 && r.Symbol != "--" {
			t.Fatalf("poll %d shows %s before the chord is stable", i, r.Symbol)
		}
	}
	if r.Symbol != "C" || r.Name != "C Major" {
		t.Errorf("stable reading = %+v, want C Major", r)
	}
	if !slices.Equal(r.History, []string{"C"}) {
		t.Errorf("history = %v", r.History)
	}
	if r.Class == "" || r.Confidence == 0 {
		t.Errorf("confidence not reported: %+v", r)
	}

	chords.Reset()
	r = chords.Poll(utils.NewFakeSource(testSampleRate, make([]byte, testBins), nil)).(*ChordReading)
	if r.Symbol != "--" || r.Name != "No chord detected" || len(r.History) != 0 {
		t.Errorf("after reset = %+v", r)
	}
}

func TestBPMTool(t *testing.T) {
	bpm := NewBPM(nil)
	src := peakSource(map[float64]byte{100: 200})

	r, ok := bpm.Poll(src).(*BPMReading)
	if !ok {
		t.Fatal("expected a reading while the source runs")
	}
	if r.BPM != 0 || r.Marking != "" {
		t.Errorf("first reading = %+v, want no tempo yet", r)
	}

	_ = src.Stop()
	if got := bpm.Poll(src); got != nil {
		t.Errorf("stopped source gave %v, want nil", got)
	}
}

func TestSpectrumSensitivity(t *testing.T) {
	src := peakSource(map[float64]byte{440: 180, 1000: 120})
	plain := NewSpectrum(32, 5, 100).Poll(src).(*analysis.Summary)
	boosted := NewSpectrum(32, 5, 200).Poll(src).(*analysis.Summary)

	if len(plain.Bars) != 32 {
		t.Fatalf("bars = %d, want 32", len(plain.Bars))
	}
	for i := range plain.Bars {
		if want := min(plain.Bars[i]*2, 100); boosted.Bars[i] != want {
			t.Errorf("bar %d = %d, want %d", i, boosted.Bars[i], want)
		}
	}

	_ = src.Stop()
	if got := NewSpectrum(32, 5, 100).Poll(src); got != nil {
		t.Errorf("stopped source gave %v, want nil", got)
	}
}

func TestControllerArbitration(t *testing.T) {
	ctx := context.Background()
	c := NewController()
	first := peakSource(map[float64]byte{440: 200})
	second := peakSource(map[float64]byte{880: 200})

	if _, err := c.Open(ctx, "tuner", opener(first)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Open(ctx, "chords", opener(second)); err != nil {
		t.Fatal(err)
	}
	if first.Ready() {
		t.Error("opening a second source should stop the first")
	}
	if c.Source() != audio.AmplitudeSource(second) || c.Owner() != "chords" {
		t.Errorf("active = %v owned by %q", c.Source(), c.Owner())
	}

	failing := func(context.Context) (audio.AmplitudeSource, error) {
		return nil, audio.ErrDeviceNotFound
	}
	_, err := c.Open(ctx, "bpm", failing)
	if !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Errorf("Open error = %v, want ErrDeviceNotFound", err)
	}
	if second.Ready() || c.Source() != nil {
		t.Error("a failed open should still release the previous source")
	}

	if err := c.Release(); err != nil {
		t.Errorf("Release with nothing open: %v", err)
	}
}

func TestPollerStops(t *testing.T) {
	var calls atomic.Int64
	p := NewPoller(2*time.Millisecond, func(context.Context) { calls.Add(1) })

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPollerRunning) {
		t.Errorf("second Start = %v, want ErrPollerRunning", err)
	}
	waitFor(t, func() bool { return calls.Load() >= 3 })

	p.Stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("%d calls after Stop returned", got-after)
	}
	if p.Running() {
		t.Error("Running after Stop")
	}
	p.Stop()

	if uint64(after) != p.Ticks() {
		t.Errorf("Ticks = %d, calls = %d", p.Ticks(), after)
	}
}

func TestPollerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	p := NewPoller(2*time.Millisecond, func(context.Context) { calls.Add(1) })
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })

	cancel()
	waitFor(t, func() bool { return !p.Running() })
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Error("poller kept running after its context was cancelled")
	}

	// A cancelled poller is idle again and can be restarted.
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart after cancel: %v", err)
	}
	waitFor(t, func() bool { return calls.Load() > after })
	p.Stop()
	if p.Running() {
		t.Error("Running after Stop")
	}
}

func TestPollerDefaultInterval(t *testing.T) {
	p := NewPoller(0, func(context.Context) {})
	if p.interval != 50*time.Millisecond {
		t.Errorf("interval = %s, want 50ms", p.interval)
	}
	p.Stop()
}

type memRepo struct{ saved []practice.Session }

func (m *memRepo) Save(_ context.Context, s practice.Session) (int64, error) {
	m.saved = append(m.saved, s)
	return int64(len(m.saved)), nil
}

func (m *memRepo) Sessions(context.Context, time.Time) ([]practice.Session, error) {
	return m.saved, nil
}

func (m *memRepo) Clear(context.Context) error {
	m.saved = nil
	return nil
}

func TestRunnerPublishes(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController()
	out := &utils.MockTransport{}
	r := NewRunner(ctrl, out, NewSpectrum(16, 5, 100), NewBPM(nil))

	r.Poll(ctx)
	if len(out.Sent()) != 0 {
		t.Fatal("published without a source")
	}

	if _, err := ctrl.Open(ctx, "spectrum", opener(peakSource(map[float64]byte{440: 200}))); err != nil {
		t.Fatal(err)
	}
	r.Poll(ctx)

	sent := out.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	var tools []string
	for _, m := range sent {
		msg, ok := m.(transport.Message)
		if !ok {
			t.Fatalf("sent %T, want transport.Message", m)
		}
		tools = append(tools, msg.Tool)
	}
	if !slices.Equal(tools, []string{"spectrum", "bpm"}) {
		t.Errorf("tools = %v", tools)
	}
}

func TestRunnerTracksSession(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	tracker := practice.NewTracker(repo)
	r := NewRunner(NewController(), &utils.MockTransport{}, NewChords(15)).WithTracker(tracker)

	if err := r.Start(ctx, time.Hour); err != nil {
		t.Fatal(err)
	}
	if !tracker.Active() {
		t.Fatal("tracker should be timing the run")
	}
	sess, err := r.Stop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.Tool != "chords" {
		t.Errorf("session = %+v, want a chords session", sess)
	}
	if len(repo.saved) != 0 {
		t.Error("a run shorter than the minimum should not be saved")
	}

	if err := NewRunner(NewController(), &utils.MockTransport{}).Start(ctx, time.Hour); err == nil {
		t.Error("Start without tools should fail")
	}
}

// countingSource counts frequency snapshot reads.
type countingSource struct {
	*utils.FakeSource
	reads atomic.Int64
}

func (c *countingSource) FrequencyData() []byte {
	c.reads.Add(1)
	return c.FakeSource.FrequencyData()
}

func TestBarFrames(t *testing.T) {
	spectrum := NewSpectrum(8, 5, 100)
	frames := BarFrames(spectrum)

	if got := frames(nil); got != nil {
		t.Errorf("frame before any poll = %v", got)
	}

	src := &countingSource{FakeSource: peakSource(map[float64]byte{100: 255})}
	if spectrum.Poll(src) == nil {
		t.Fatal("spectrum poll returned nothing")
	}
	reads := src.reads.Load()

	got := frames(nil)
	if len(got) != 8 {
		t.Fatalf("frame has %d values, want 8", len(got))
	}
	for i, v := range got {
		if v < 0 || v > 1 {
			t.Errorf("value %d = %v outside [0, 1]", i, v)
		}
	}
	if got[0] == 0 {
		t.Error("the bar holding the 100 Hz peak should be non-zero")
	}
	frames(got)
	if src.reads.Load() != reads {
		t.Error("frames read the source; only polls should advance the analyser")
	}

	spectrum.Reset()
	if got := frames(nil); got != nil {
		t.Errorf("frame after Reset = %v", got)
	}
}
