// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "practice/internal/log"
	"practice/pkg/bitint"
)

// envFiles are loaded into the process environment before overrides are
// applied. Missing files are ignored; existing variables are not replaced.
var envFiles = []string{".env"}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it looks for "config.yaml" in the working directory and falls back to
// built-in defaults. Environment overrides (ENV_*) are applied last, then the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Validate checks ranges and normalises values that have an obvious fix.
// A non power of two fft_size is rounded up to the next power of two.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not recognised", c.LogLevel)
	}

	a := &c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d is invalid", a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be at least 1")
	}
	if a.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive")
	}
	if !bitint.IsPowerOfTwo(a.FFTSize) {
		a.FFTSize = bitint.NextPowerOfTwo(a.FFTSize)
	}
	if a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		return fmt.Errorf("audio.fft_size %d outside [%d, %d]", a.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if a.Smoothing < 0 || a.Smoothing >= 1 {
		return fmt.Errorf("audio.smoothing %.2f outside [0, 1)", a.Smoothing)
	}

	n := &c.Analysis
	if n.PollInterval <= 0 {
		return fmt.Errorf("analysis.poll_interval must be positive")
	}
	if n.BarCount <= 0 || n.BarCount > a.FFTSize/2 {
		return fmt.Errorf("analysis.bar_count %d outside [1, %d]", n.BarCount, a.FFTSize/2)
	}
	if n.InTuneCents <= 0 || n.InTuneCents > 50 {
		return fmt.Errorf("analysis.in_tune_cents %d outside [1, 50]", n.InTuneCents)
	}

	m := &c.Metronome
	if m.BPM < MinBPM || m.BPM > MaxBPM {
		return fmt.Errorf("metronome.bpm %d outside [%d, %d]", m.BPM, MinBPM, MaxBPM)
	}
	if m.BeatsPerMeasure < 1 || m.BeatsPerMeasure > MaxBeats {
		return fmt.Errorf("metronome.beats_per_measure %d outside [1, %d]", m.BeatsPerMeasure, MaxBeats)
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth %d unsupported", c.Recording.BitDepth)
	}

	t := &c.Transport
	switch t.Kind {
	case TransportLog:
	case TransportWebSocket:
		if t.WebSocketAddr == "" {
			return fmt.Errorf("transport.websocket_addr must be set for the websocket transport")
		}
		if t.BroadcastRate <= 0 {
			return fmt.Errorf("transport.broadcast_rate must be positive")
		}
	case TransportUDP:
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set for the udp transport")
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive")
		}
	default:
		return fmt.Errorf("transport.kind %q is not one of log, websocket, udp", t.Kind)
	}

	return nil
}

// applyEnvOverrides applies ENV_* variables on top of file values. Values
// that fail to parse are ignored.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = b
			applog.Debugf("configuration: overriding debug from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = n
			applog.Debugf("configuration: overriding audio.input_device from env: %d", n)
		}
	}
	if val, ok := os.LookupEnv("ENV_FFT_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Audio.FFTSize = n
		}
	}
	if val, ok := os.LookupEnv("ENV_POLL_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Analysis.PollInterval = d
		}
	}
	if val, ok := os.LookupEnv("ENV_TRANSPORT"); ok {
		cfg.Transport.Kind = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("ENV_PRACTICE_DB"); ok {
		cfg.Practice.DBPath = val
	}
}
