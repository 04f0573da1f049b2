// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"practice/internal/fft"
	applog "practice/internal/log"
)

// SampleTap receives every mono block the live source captures. It is
// called on the audio thread and must not block.
type SampleTap interface {
	WriteSamples(mono []float32)
}

// inputStream is the part of *portaudio.Stream the live source uses.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

var openInputStream = func(p portaudio.StreamParameters, cb func(in []float32)) (inputStream, error) {
	return portaudio.OpenStream(p, cb)
}

// LiveSource captures from a PortAudio input device.
type LiveSource struct {
	snapshotter

	opts   Options
	log    *applog.Logger
	device *portaudio.DeviceInfo
	stream inputStream
	mono   []float32
	gate   *Gate

	mu       sync.Mutex // guards stream and stopOnce across Initialize/Stop
	stopOnce sync.Once
	tap      atomicTap
}

type atomicTap struct {
	mu  sync.RWMutex
	tap SampleTap
}

func (a *atomicTap) set(t SampleTap) {
	a.mu.Lock()
	a.tap = t
	a.mu.Unlock()
}

func (a *atomicTap) write(mono []float32) {
	a.mu.RLock()
	if a.tap != nil {
		a.tap.WriteSamples(mono)
	}
	a.mu.RUnlock()
}

// NewLiveSource returns an idle live source.
func NewLiveSource(opts Options) *LiveSource {
	if opts.Channels < 1 {
		opts.Channels = 1
	}
	return &LiveSource{
		opts: opts,
		log:  applog.For("capture"),
		mono: make([]float32, opts.FramesPerBuffer),
		gate: NewGate(DefaultGateThreshold),
	}
}

// Initialize opens and starts the input stream. A source can be
// initialized once; failures leave it Idle so the caller can report the
// classified error and discard it.
func (s *LiveSource) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateIdle {
		return ErrAlreadyStarted
	}
	if c := s.opts.Constraints; c.EchoCancellation || c.NoiseSuppression || c.AutoGainControl {
		s.log.Warnf("processing constraints are not supported by the capture host, using the raw signal")
	}

	device, err := InputDevice(s.opts.DeviceID)
	if err != nil {
		return classify(err)
	}
	s.device = device

	analyser, err := fft.NewAnalyser(s.opts.FFTSize, s.opts.SampleRate, s.opts.Smoothing, s.opts.Window)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	s.analyser = analyser

	channels := min(s.opts.Channels, device.MaxInputChannels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		FramesPerBuffer: s.opts.FramesPerBuffer,
		SampleRate:      s.opts.SampleRate,
	}

	stream, err := openInputStream(params, s.process(channels))
	if err != nil {
		return classify(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return classify(err)
	}
	s.stream = stream
	s.state.Store(int32(StateRunning))

	s.log.WithFields(applog.Fields{"device": device.Name, "rate": s.opts.SampleRate, "fft": s.opts.FFTSize}).
		Infof("capture started")
	return nil
}

// process returns the stream callback. It mixes interleaved channels down
// to mono and feeds the analyser and the tap. No allocations.
func (s *LiveSource) process(channels int) func(in []float32) {
	return func(in []float32) {
		frames := len(in) / channels
		if frames > len(s.mono) {
			frames = len(s.mono)
		}
		mono := s.mono[:frames]
		if channels == 1 {
			copy(mono, in)
		} else {
			inv := 1 / float32(channels)
			for f := range frames {
				var sum float32
				for c := range channels {
					sum += in[f*channels+c]
				}
				mono[f] = sum * inv
			}
		}
		s.gate.Process(mono)
		s.analyser.Write(mono)
		s.tap.write(mono)
	}
}

// SetTap installs (or with nil removes) a sample tap, e.g. a Recorder.
func (s *LiveSource) SetTap(t SampleTap) { s.tap.set(t) }

// Gate exposes the input gate so callers can tune its threshold.
func (s *LiveSource) Gate() *Gate { return s.gate }

// SignalPresent reports whether the last captured block crossed the gate.
func (s *LiveSource) SignalPresent() bool { return s.Ready() && s.gate.Open() }

// Device returns the opened input device, nil before Initialize.
func (s *LiveSource) Device() *portaudio.DeviceInfo { return s.device }

// Stop releases the stream. It is idempotent; after Stop every snapshot
// method reports not ready.
func (s *LiveSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateStopped))
		if s.stream == nil {
			return
		}
		start := time.Now()
		if e := s.stream.Stop(); e != nil {
			err = fmt.Errorf("stopping input stream: %w", e)
		}
		if e := s.stream.Close(); e != nil && err == nil {
			err = fmt.Errorf("closing input stream: %w", e)
		}
		s.stream = nil
		s.log.Debugf("capture stopped in %s", time.Since(start))
	})
	return err
}

// classify maps a PortAudio failure onto the acquisition error kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrInitialization):
		return err
	case errors.Is(err, portaudio.DeviceUnavailable):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, portaudio.InvalidDevice),
		errors.Is(err, portaudio.NoDefaultInputDevice),
		errors.Is(err, portaudio.InvalidChannelCount):
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
}

var _ AmplitudeSource = (*LiveSource)(nil)
