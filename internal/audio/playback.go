package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"

	"practice/internal/fft"
	applog "practice/internal/log"
)

// PlaybackSource plays decoded samples against a clock and exposes the
// analyser view at the current playhead. Once the end is reached it keeps
// reporting the final window until stopped.
type PlaybackSource struct {
	snapshotter

	path    string
	opts    Options
	samples []float32
	rate    float64
	now     func() time.Time
	log     *applog.Logger

	mu      sync.Mutex
	started time.Time
	written int // samples already fed to the analyser
}

// NewPlaybackSource returns an idle source that will play the WAV file at
// path. The file's own sample rate is used.
func NewPlaybackSource(path string, opts Options) *PlaybackSource {
	return &PlaybackSource{path: path, opts: opts, now: time.Now, log: applog.For("playback")}
}

// NewPlaybackFromSamples plays in-memory mono samples in [-1, 1].
func NewPlaybackFromSamples(samples []float32, sampleRate float64, opts Options) *PlaybackSource {
	return &PlaybackSource{samples: samples, rate: sampleRate, opts: opts, now: time.Now, log: applog.For("playback")}
}

// WithClock replaces the wall clock, for tests.
func (p *PlaybackSource) WithClock(now func() time.Time) *PlaybackSource {
	p.now = now
	return p
}

// Initialize decodes the file (when one was given) and starts playback.
func (p *PlaybackSource) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() != StateIdle {
		return ErrAlreadyStarted
	}

	if p.path != "" {
		samples, rate, err := decodeWAV(p.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
			}
			return fmt.Errorf("%w: %v", ErrInitialization, err)
		}
		p.samples, p.rate = samples, rate
	}
	if len(p.samples) == 0 {
		return fmt.Errorf("%w: no samples to play", ErrInitialization)
	}

	analyser, err := fft.NewAnalyser(p.opts.FFTSize, p.rate, p.opts.Smoothing, p.opts.Window)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	p.analyser = analyser
	p.started = p.now()
	p.written = 0
	p.state.Store(int32(StateRunning))
	p.log.Infof("playing %d samples at %.0f Hz (%s)", len(p.samples), p.rate, p.Duration())
	return nil
}

// advance feeds the analyser everything up to the playhead. Only the last
// window matters, so long gaps skip ahead.
func (p *PlaybackSource) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() != StateRunning {
		return
	}
	head := int(p.now().Sub(p.started).Seconds() * p.rate)
	head = min(max(head, 0), len(p.samples))
	if head <= p.written {
		return
	}
	from := max(p.written, head-p.analyser.FFTSize())
	p.analyser.Write(p.samples[from:head])
	p.written = head
}

func (p *PlaybackSource) FrequencyData() []byte {
	p.advance()
	return p.snapshotter.FrequencyData()
}

func (p *PlaybackSource) WaveformData() []byte {
	p.advance()
	return p.snapshotter.WaveformData()
}

func (p *PlaybackSource) Volume() int {
	return volumeOf(p.FrequencyData())
}

// Ended reports whether the playhead has reached the last sample.
func (p *PlaybackSource) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.State() == StateRunning && p.written >= len(p.samples)
}

// Duration is the total playback length.
func (p *PlaybackSource) Duration() time.Duration {
	if p.rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(p.samples)) / p.rate * float64(time.Second))
}

// Stop ends playback. Idempotent.
func (p *PlaybackSource) Stop() error {
	p.mu.Lock()
	p.state.Store(int32(StateStopped))
	p.mu.Unlock()
	return nil
}

// decodeWAV reads a PCM WAV file and mixes it to mono floats in [-1, 1].
func decodeWAV(path string) ([]float32, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s is not a valid WAV file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", path, err)
	}

	channels := max(buf.Format.NumChannels, 1)
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))
	offset := 0
	if depth == 8 {
		offset = 128 // 8-bit WAV is unsigned
	}

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += float32(buf.Data[i*channels+c]-offset) / scale
		}
		mono[i] = sum / float32(channels)
	}
	return mono, float64(buf.Format.SampleRate), nil
}

var _ AmplitudeSource = (*PlaybackSource)(nil)
