// Package metronome schedules click tracks against an audio clock. A short
// wall-clock ticker wakes the scheduler, but every click is placed at an
// exact audio-clock time a little ahead of now, so ticker jitter never
// reaches the output.
package metronome

import (
	"context"
	"sync"
	"time"

	"practice/internal/config"
	applog "practice/internal/log"
)

// Scheduling parameters.
const (
	LookAhead        = 0.1 // seconds of audio scheduled ahead of the clock
	ScheduleInterval = 25 * time.Millisecond
	eventBuffer      = 16
)

// AudioClock is a monotonic clock in seconds, driven by the output device.
type AudioClock interface {
	Now() float64
}

// ClickSink plays a click at an audio-clock time.
type ClickSink interface {
	Click(at float64, accent bool)
}

// Beat is a display event, delivered when its click sounds.
type Beat struct {
	Index  int     `json:"beat"`
	Accent bool    `json:"accent"`
	At     float64 `json:"at"`
}

// Metronome is Idle until Start and Running until Stop or the end of the
// context passed to Start.
type Metronome struct {
	clock AudioClock
	sink  ClickSink
	log   *applog.Logger

	// afterFunc defers display events until their click sounds.
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu      sync.Mutex
	bpm     int
	beats   int
	current int
	next    float64
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	timers  map[*time.Timer]struct{}
	tapper  *Tapper
	events  chan Beat
}

// New creates an idle metronome. bpm and beatsPerMeasure are clamped into
// range.
func New(clock AudioClock, sink ClickSink, bpm, beatsPerMeasure int) *Metronome {
	return &Metronome{
		clock:     clock,
		sink:      sink,
		log:       applog.For("metronome"),
		afterFunc: time.AfterFunc,
		bpm:       clampBPM(bpm),
		beats:     clampBeats(beatsPerMeasure),
		timers:    make(map[*time.Timer]struct{}),
		tapper:    NewTapper(),
		events:    make(chan Beat, eventBuffer),
	}
}

// Events delivers beats for display. Events are dropped when the channel
// is full.
func (m *Metronome) Events() <-chan Beat { return m.events }

// Start begins scheduling from the current audio time with beat 0. It is a
// no-op while running. The loop ends when ctx is cancelled or Stop is
// called.
func (m *Metronome) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	m.running = true
	m.current = 0
	m.next = m.clock.Now()
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.log.Infof("started at %d bpm, %d beats per measure", m.Tempo(), m.TimeSignature())
	m.Schedule()
	go m.loop(ctx, done)
	return nil
}

func (m *Metronome) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(ScheduleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			stopped := m.halt(done)
			m.mu.Unlock()
			if stopped {
				m.log.Infof("stopped: %v", context.Cause(ctx))
			}
			return
		case <-ticker.C:
			m.Schedule()
		}
	}
}

// Schedule runs one scheduler pass: every beat due before now+LookAhead is
// handed to the sink and queued for display.
func (m *Metronome) Schedule() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	now := m.clock.Now()
	for m.next < now+LookAhead {
		m.scheduleBeat(m.current, m.next, now)
		m.next += 60 / float64(m.bpm)
		m.current = (m.current + 1) % m.beats
	}
}

// scheduleBeat must be called with mu held.
func (m *Metronome) scheduleBeat(index int, at, now float64) {
	accent := index == 0
	m.sink.Click(at, accent)

	beat := Beat{Index: index, Accent: accent, At: at}
	delay := time.Duration(max(at-now, 0) * float64(time.Second))
	var t *time.Timer
	t = m.afterFunc(delay, func() {
		m.mu.Lock()
		delete(m.timers, t)
		m.mu.Unlock()
		select {
		case m.events <- beat:
		default:
		}
	})
	m.timers[t] = struct{}{}
}

// Stop ends scheduling and cancels pending display events. Clicks already
// handed to the sink still sound. Safe to call repeatedly.
func (m *Metronome) Stop() {
	m.mu.Lock()
	done := m.done
	if !m.halt(done) {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	<-done
	m.log.Infof("stopped")
}

// halt moves the run owning done back to Idle and cancels its display
// events. It reports false when that run has already ended. mu must be
// held.
func (m *Metronome) halt(done chan struct{}) bool {
	if !m.running || m.done != done {
		return false
	}
	m.running = false
	m.cancel()
	for t := range m.timers {
		t.Stop()
	}
	clear(m.timers)
	return true
}

func (m *Metronome) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// SetTempo changes the tempo, clamped to [40, 240], and returns the value
// applied. It takes effect from the next unscheduled beat.
func (m *Metronome) SetTempo(bpm int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bpm = clampBPM(bpm)
	return m.bpm
}

func (m *Metronome) Tempo() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bpm
}

// SetTimeSignature sets the beats per measure, clamped to [1, 16]. While
// running the next scheduled beat becomes the downbeat.
func (m *Metronome) SetTimeSignature(beats int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beats = clampBeats(beats)
	if m.running {
		m.current = 0
	}
	return m.beats
}

func (m *Metronome) TimeSignature() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beats
}

// Tap registers a tap at now. With enough recent taps the tempo is set from
// them; ok reports whether that happened.
func (m *Metronome) Tap(now time.Time) (bpm int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bpm, ok = m.tapper.Tap(now)
	if ok {
		m.bpm = bpm
	}
	return bpm, ok
}

func clampBPM(bpm int) int {
	return max(config.MinBPM, min(config.MaxBPM, bpm))
}

func clampBeats(beats int) int {
	return max(1, min(config.MaxBeats, beats))
}
