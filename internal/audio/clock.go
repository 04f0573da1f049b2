package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	applog "practice/internal/log"
)

// Click tone parameters.
const (
	AccentFrequency = 1000.0
	AccentGain      = 0.5
	BeatFrequency   = 800.0
	BeatGain        = 0.3
	ClickLength     = 0.05 // seconds
	ClickFloor      = 0.01 // gain reached at the end of the decay
)

type outputStream interface {
	Start() error
	Stop() error
	Close() error
}

var openOutputStream = func(p portaudio.StreamParameters, cb func(out []float32)) (outputStream, error) {
	return portaudio.OpenStream(p, cb)
}

type scheduledClick struct {
	startFrame int64
	freq, gain float64
}

// ClickOutput is a mono output stream whose running frame count is the
// audio clock. Clicks are rendered at the exact frame they are scheduled
// for, so timing does not depend on when the scheduler goroutine runs.
type ClickOutput struct {
	deviceID        int
	sampleRate      float64
	framesPerBuffer int
	log             *applog.Logger

	frames atomic.Int64

	mu      sync.Mutex
	pending []scheduledClick
	stream  outputStream
	stopped bool
}

func NewClickOutput(deviceID int, sampleRate float64, framesPerBuffer int) *ClickOutput {
	return &ClickOutput{
		deviceID:        deviceID,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		log:             applog.For("click"),
		pending:         make([]scheduledClick, 0, 32),
	}
}

// Start opens the output device and begins advancing the clock.
func (c *ClickOutput) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}
	if c.stopped {
		return fmt.Errorf("click output already closed")
	}

	device, err := OutputDevice(c.deviceID)
	if err != nil {
		return fmt.Errorf("opening click output: %w", err)
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowOutputLatency,
		},
		FramesPerBuffer: c.framesPerBuffer,
		SampleRate:      c.sampleRate,
	}
	stream, err := openOutputStream(params, c.render)
	if err != nil {
		return fmt.Errorf("opening click output: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("starting click output: %w", err)
	}
	c.stream = stream
	c.log.Debugf("click output on %s", device.Name)
	return nil
}

// Now returns the audio clock in seconds.
func (c *ClickOutput) Now() float64 {
	return float64(c.frames.Load()) / c.sampleRate
}

// Click schedules a click at audio time at (seconds). Accented clicks are
// higher and louder.
func (c *ClickOutput) Click(at float64, accent bool) {
	sc := scheduledClick{
		startFrame: int64(math.Round(at * c.sampleRate)),
		freq:       BeatFrequency,
		gain:       BeatGain,
	}
	if accent {
		sc.freq, sc.gain = AccentFrequency, AccentGain
	}
	c.mu.Lock()
	c.pending = append(c.pending, sc)
	c.mu.Unlock()
}

// render is the stream callback.
func (c *ClickOutput) render(out []float32) {
	start := c.frames.Load()
	c.mu.Lock()
	c.pending = renderClicks(out, start, c.sampleRate, c.pending)
	c.mu.Unlock()
	c.frames.Add(int64(len(out)))
}

// renderClicks writes every click overlapping [start, start+len(out)) into
// out and returns the clicks that are not finished yet, reusing the slice.
func renderClicks(out []float32, start int64, sampleRate float64, clicks []scheduledClick) []scheduledClick {
	clear(out)
	length := int64(ClickLength * sampleRate)
	end := start + int64(len(out))

	kept := clicks[:0]
	for _, sc := range clicks {
		if sc.startFrame+length <= start {
			continue // finished
		}
		if sc.startFrame < end {
			from := max(sc.startFrame, start)
			to := min(sc.startFrame+length, end)
			for f := from; f < to; f++ {
				t := float64(f-sc.startFrame) / sampleRate
				env := sc.gain * math.Pow(ClickFloor/sc.gain, t/ClickLength)
				out[f-start] += float32(env * math.Sin(2*math.Pi*sc.freq*t))
			}
		}
		if sc.startFrame+length > end {
			kept = append(kept, sc)
		}
	}
	return kept
}

// Pending returns the number of scheduled clicks not yet fully played.
func (c *ClickOutput) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop closes the stream. Clicks already handed to the device are not
// retracted. Idempotent.
//
// The stream is stopped without holding mu: stopping waits for the last
// callback, and render needs mu.
func (c *ClickOutput) Stop() error {
	c.mu.Lock()
	c.stopped = true
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()
	if stream == nil {
		return nil
	}

	err := stream.Stop()
	if cerr := stream.Close(); err == nil {
		err = cerr
	}

	c.mu.Lock()
	c.pending = c.pending[:0]
	c.mu.Unlock()
	return err
}
