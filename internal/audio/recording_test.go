// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

const testSampleRate = 44100

func TestRecorderWritesWAV(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "takes", "scale.wav")
	r := NewRecorder(testSampleRate, 16, 0)

	if err := r.StartRecording(filename); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !r.IsRecording() {
		t.Fatal("recorder should be recording")
	}

	block := make([]float32, 441)
	for i := range block {
		block[i] = 0.25
	}
	for range 100 {
		r.WriteSamples(block)
	}

	if got := r.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
	if err := r.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if r.IsRecording() {
		t.Error("recorder should be stopped")
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Format.SampleRate != testSampleRate || buf.Format.NumChannels != 1 {
		t.Errorf("format = %+v", buf.Format)
	}
	if len(buf.Data) != 44100 {
		t.Errorf("frames = %d, want 44100", len(buf.Data))
	}
	full := float32(32767)
	if want := int(0.25 * full); buf.Data[10] != want {
		t.Errorf("sample = %d, want %d", buf.Data[10], want)
	}
}

func TestRecorderMaxDuration(t *testing.T) {
	r := NewRecorder(1000, 16, 500*time.Millisecond)
	if err := r.StartRecording(filepath.Join(t.TempDir(), "short.wav")); err != nil {
		t.Fatal(err)
	}
	defer r.StopRecording()

	for range 10 {
		r.WriteSamples(make([]float32, 100))
	}
	if got := r.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration = %v, want capped at 500ms", got)
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()

	t.Run("Already recording", func(t *testing.T) {
		r := NewRecorder(testSampleRate, 16, 0)
		if err := r.StartRecording(filepath.Join(dir, "a.wav")); err != nil {
			t.Fatal(err)
		}
		defer r.StopRecording()
		err := r.StartRecording(filepath.Join(dir, "b.wav"))
		if err == nil || !strings.Contains(err.Error(), "already recording") {
			t.Errorf("error = %v, want already recording", err)
		}
	})

	t.Run("Invalid path", func(t *testing.T) {
		r := NewRecorder(testSampleRate, 16, 0)
		blocker := filepath.Join(dir, "file")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := r.StartRecording(filepath.Join(blocker, "x.wav")); err == nil {
			t.Error("expected error for path under a regular file")
		}
	})

	t.Run("Stop when not recording", func(t *testing.T) {
		r := NewRecorder(testSampleRate, 16, 0)
		if err := r.StopRecording(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		// Samples while idle are ignored.
		r.WriteSamples(make([]float32, 10))
		if r.Duration() != 0 {
			t.Error("idle recorder should not count samples")
		}
	})
}

func TestDefaultFilename(t *testing.T) {
	ts := time.Date(2025, 3, 7, 14, 5, 9, 0, time.UTC)
	got := DefaultFilename("out", ts)
	if want := filepath.Join("out", "recording-07-03-2025-140509.wav"); got != want {
		t.Errorf("DefaultFilename = %q, want %q", got, want)
	}
}
