package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder writes the mono capture stream to a WAV file. It is installed
// as the live source's SampleTap so recording never opens a second capture.
type Recorder struct {
	sampleRate int
	bitDepth   int
	maxFrames  int64 // 0 for unlimited

	isRecording atomic.Bool
	mu          sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
	frames      atomic.Int64
	path        string
}

// NewRecorder creates a recorder. maxDuration of zero means unlimited.
func NewRecorder(sampleRate float64, bitDepth int, maxDuration time.Duration) *Recorder {
	r := &Recorder{sampleRate: int(sampleRate), bitDepth: bitDepth}
	if maxDuration > 0 {
		r.maxFrames = int64(maxDuration.Seconds() * sampleRate)
	}
	return r
}

// DefaultFilename returns dir/recording-DD-MM-YYYY-HHMMSS.wav for t.
func DefaultFilename(dir string, t time.Time) string {
	return filepath.Join(dir, "recording-"+t.UTC().Format("02-01-2006-150405")+".wav")
}

// StartRecording opens filename and begins accepting samples.
func (r *Recorder) StartRecording(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating recording directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file
	r.path = filename
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, 1, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: r.sampleRate},
		Data:           make([]int, 0, 4096),
		SourceBitDepth: r.bitDepth,
	}
	r.frames.Store(0)
	r.isRecording.Store(true)
	return nil
}

// WriteSamples implements SampleTap. Samples past the maximum duration are
// discarded.
func (r *Recorder) WriteSamples(mono []float32) {
	if !r.isRecording.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return
	}

	n := int64(len(mono))
	if r.maxFrames > 0 {
		n = min(n, r.maxFrames-r.frames.Load())
		if n <= 0 {
			return
		}
	}

	full := float32(int64(1)<<(r.bitDepth-1) - 1)
	data := r.sampleBuf.Data[:0]
	for _, s := range mono[:n] {
		s = min(max(s, -1), 1)
		data = append(data, int(s*full))
	}
	r.sampleBuf.Data = data

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return
	}
	r.frames.Add(n)
}

// StopRecording finalises the WAV header and closes the file. Calling it
// when not recording is a no-op.
func (r *Recorder) StopRecording() error {
	if !r.isRecording.Swap(false) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}
	return nil
}

// IsRecording reports whether samples are being written.
func (r *Recorder) IsRecording() bool { return r.isRecording.Load() }

// Duration is the length of audio written so far.
func (r *Recorder) Duration() time.Duration {
	if r.sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(r.frames.Load()) / float64(r.sampleRate) * float64(time.Second))
}

// Path is the file of the current or last recording.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

var _ SampleTap = (*Recorder)(nil)
