// SPDX-License-Identifier: MIT
/*
Package audio acquires sound for the practice tools. An AmplitudeSource
hands out fresh byte snapshots of the current spectrum and waveform; the
two implementations are a live PortAudio capture (LiveSource) and a WAV
file played against the wall clock (PlaybackSource).

Every source follows the same lifecycle:

	Idle --Initialize--> Running --Stop--> Stopped

Snapshots are only available while Running. Stop is idempotent and
Stopped is terminal.
*/
package audio

import (
	"errors"
	"math"
	"sync/atomic"

	"practice/internal/config"
	"practice/internal/fft"
)

// Acquisition failures. Initialize wraps the underlying cause with one of
// these so callers can branch with errors.Is.
var (
	ErrPermissionDenied = errors.New("microphone access denied")
	ErrDeviceNotFound   = errors.New("no microphone found")
	ErrInitialization   = errors.New("failed to access microphone")
	ErrAlreadyStarted   = errors.New("source already initialized")
)

// State is a source lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// AmplitudeSource is what the detectors read from.
type AmplitudeSource interface {
	// FrequencyData returns BinCount() bytes, or nil when not running.
	FrequencyData() []byte
	// WaveformData returns 2*BinCount() bytes centred at 128, or nil.
	WaveformData() []byte
	// Volume is the mean spectrum level scaled to 0..100.
	Volume() int
	SampleRate() float64
	BinCount() int
	IndexToFrequency(i int) float64
	Ready() bool
	Stop() error
}

// Constraints are the processing options requested from the capture path.
// The zero value asks for the raw signal.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Options configure a source.
type Options struct {
	DeviceID        int
	SampleRate      float64
	FramesPerBuffer int
	Channels        int
	FFTSize         int
	Smoothing       float64
	Window          fft.WindowFunc
	Constraints     Constraints
}

// DefaultOptions mirrors the built-in configuration.
func DefaultOptions() Options {
	return Options{
		DeviceID:        config.DefaultDeviceID,
		SampleRate:      config.DefaultSampleRate,
		FramesPerBuffer: config.DefaultFramesPerBuffer,
		Channels:        config.DefaultInputChannels,
		FFTSize:         config.DefaultFFTSize,
		Smoothing:       config.DefaultSmoothing,
		Window:          fft.Blackman,
	}
}

// OptionsFromConfig builds source options from the audio section.
func OptionsFromConfig(c config.AudioConfig) Options {
	return Options{
		DeviceID:        c.InputDevice,
		SampleRate:      c.SampleRate,
		FramesPerBuffer: c.FramesPerBuffer,
		Channels:        c.InputChannels,
		FFTSize:         c.FFTSize,
		Smoothing:       c.Smoothing,
		Window:          fft.Blackman,
		Constraints: Constraints{
			EchoCancellation: c.EchoCancellation,
			NoiseSuppression: c.NoiseSuppression,
			AutoGainControl:  c.AutoGainControl,
		},
	}
}

// snapshotter implements the snapshot half of AmplitudeSource over an
// analyser and a lifecycle state. Both sources embed it.
type snapshotter struct {
	state    atomic.Int32
	analyser *fft.Analyser
}

func (s *snapshotter) State() State { return State(s.state.Load()) }

func (s *snapshotter) Ready() bool { return s.State() == StateRunning && s.analyser != nil }

func (s *snapshotter) FrequencyData() []byte {
	if !s.Ready() {
		return nil
	}
	return s.analyser.FrequencyData(nil)
}

func (s *snapshotter) WaveformData() []byte {
	if !s.Ready() {
		return nil
	}
	return s.analyser.TimeDomainData(nil)
}

func (s *snapshotter) Volume() int {
	data := s.FrequencyData()
	return volumeOf(data)
}

func (s *snapshotter) SampleRate() float64 {
	if s.analyser == nil {
		return 0
	}
	return s.analyser.SampleRate()
}

func (s *snapshotter) BinCount() int {
	if s.analyser == nil {
		return 0
	}
	return s.analyser.BinCount()
}

func (s *snapshotter) IndexToFrequency(i int) float64 {
	if s.analyser == nil {
		return 0
	}
	return s.analyser.IndexToFrequency(i)
}

// volumeOf returns the mean of data scaled from 0..255 to 0..100.
func volumeOf(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	sum := 0
	for _, v := range data {
		sum += int(v)
	}
	avg := float64(sum) / float64(len(data))
	return int(math.Round(avg / 255 * 100))
}
