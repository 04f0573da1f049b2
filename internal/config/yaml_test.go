// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Audio.FFTSize != DefaultFFTSize || cfg.Audio.Smoothing != DefaultSmoothing {
		t.Errorf("analyser defaults = %d/%.2f, want %d/%.2f",
			cfg.Audio.FFTSize, cfg.Audio.Smoothing, DefaultFFTSize, DefaultSmoothing)
	}
	if cfg.Analysis.BarCount != 64 || cfg.Analysis.Sensitivity != 100 {
		t.Errorf("display defaults = %d/%d", cfg.Analysis.BarCount, cfg.Analysis.Sensitivity)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
audio:
  fft_size: 3000
  smoothing: 0.5
analysis:
  poll_interval: 100ms
metronome:
  bpm: 90
  beats_per_measure: 3
transport:
  kind: websocket
  websocket_addr: ":9999"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Audio.FFTSize != 4096 {
		t.Errorf("fft_size = %d, want rounded up to 4096", cfg.Audio.FFTSize)
	}
	if cfg.Analysis.PollInterval != 100*time.Millisecond {
		t.Errorf("poll_interval = %v", cfg.Analysis.PollInterval)
	}
	if cfg.Metronome.BPM != 90 || cfg.Metronome.BeatsPerMeasure != 3 {
		t.Errorf("metronome = %+v", cfg.Metronome)
	}
	// Unset keys keep their defaults.
	if cfg.Analysis.BarCount != DefaultBarCount {
		t.Errorf("bar_count = %d, want default", cfg.Analysis.BarCount)
	}
	if cfg.Transport.Kind != TransportWebSocket || cfg.Transport.WebSocketAddr != ":9999" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_TRANSPORT", "udp")
	t.Setenv("ENV_POLL_INTERVAL", "20ms")
	t.Setenv("ENV_INPUT_DEVICE", "3")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transport.Kind != TransportUDP {
		t.Errorf("transport.kind = %q, want udp", cfg.Transport.Kind)
	}
	if cfg.Analysis.PollInterval != 20*time.Millisecond {
		t.Errorf("poll_interval = %v, want 20ms", cfg.Analysis.PollInterval)
	}
	if cfg.Audio.InputDevice != 3 {
		t.Errorf("input_device = %d, want 3", cfg.Audio.InputDevice)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ENV_PRACTICE_DB=/tmp/from-dotenv.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_PRACTICE_DB", "")
	os.Unsetenv("ENV_PRACTICE_DB")

	if err := loadEnvFiles(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("loadEnvFiles: %v", err)
	}
	if got := os.Getenv("ENV_PRACTICE_DB"); got != "/tmp/from-dotenv.db" {
		t.Errorf("ENV_PRACTICE_DB = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"smoothing", func(c *Config) { c.Audio.Smoothing = 1 }, "audio.smoothing"},
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 100 }, "audio.sample_rate"},
		{"fft too big", func(c *Config) { c.Audio.FFTSize = 1 << 16 }, "audio.fft_size"},
		{"bpm", func(c *Config) { c.Metronome.BPM = 300 }, "metronome.bpm"},
		{"beats", func(c *Config) { c.Metronome.BeatsPerMeasure = 0 }, "beats_per_measure"},
		{"bit depth", func(c *Config) { c.Recording.BitDepth = 12 }, "bit_depth"},
		{"transport", func(c *Config) { c.Transport.Kind = "carrier-pigeon" }, "transport.kind"},
		{"bars", func(c *Config) { c.Analysis.BarCount = 0 }, "bar_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
