package config

import "time"

// Defaults for the practice toolkit. The analyser and display values match
// what the settings page ships with.
const (
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
	DefaultInputChannels   = 1
	DefaultFFTSize         = 2048
	DefaultSmoothing       = 0.8

	DefaultPollInterval   = 50 * time.Millisecond
	DefaultBarCount       = 64
	DefaultSensitivity    = 100
	DefaultSoundThreshold = 5
	DefaultChordThreshold = 15
	DefaultInTuneCents    = 5
	DefaultInstrument     = "chromatic"

	DefaultBPM             = 120
	DefaultBeatsPerMeasure = 4

	DefaultBitDepth  = 16
	DefaultOutputDir = "./recordings"

	DefaultTransport     = TransportLog
	DefaultWebSocketAddr = ":8080"
	DefaultBroadcastRate = 30.0
	DefaultUDPTarget     = "127.0.0.1:9090"
	DefaultUDPInterval   = 33 * time.Millisecond

	DefaultPracticeDB = "practice.db"

	// Hardware and processing limits
	MinDeviceID   = -1 // -1 represents system default device
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MinFFTSize    = 32
	MaxFFTSize    = 32768
	MinBPM        = 40
	MaxBPM        = 240
	MaxBeats      = 16
)

// Result transport kinds.
const (
	TransportLog       = "log"
	TransportWebSocket = "websocket"
	TransportUDP       = "udp"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Metronome MetronomeConfig `yaml:"metronome"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Practice  PracticeConfig  `yaml:"practice"`
}

// AudioConfig holds capture and analyser settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`  // PortAudio device index (-1 for default).
	OutputDevice    int     `yaml:"output_device"` // Used by the metronome click output.
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	InputChannels   int     `yaml:"input_channels"`
	FFTSize         int     `yaml:"fft_size"`
	Smoothing       float64 `yaml:"smoothing"`

	// Processing constraints requested from the capture path. All off by
	// default so the detectors see the raw signal.
	EchoCancellation bool `yaml:"echo_cancellation"`
	NoiseSuppression bool `yaml:"noise_suppression"`
	AutoGainControl  bool `yaml:"auto_gain_control"`
}

// AnalysisConfig holds poll cadence and detector thresholds.
type AnalysisConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	BarCount       int           `yaml:"bar_count"`
	Sensitivity    int           `yaml:"sensitivity"`
	SoundThreshold int           `yaml:"sound_threshold"`
	ChordThreshold int           `yaml:"chord_threshold"`
	InTuneCents    int           `yaml:"in_tune_cents"`
	Instrument     string        `yaml:"instrument"`
}

type MetronomeConfig struct {
	BPM             int `yaml:"bpm"`
	BeatsPerMeasure int `yaml:"beats_per_measure"`
}

type RecordingConfig struct {
	OutputDir   string `yaml:"output_dir"`
	BitDepth    int    `yaml:"bit_depth"`
	MaxDuration int    `yaml:"max_duration_seconds"` // 0 for unlimited.
}

// TransportConfig selects where detector results go.
type TransportConfig struct {
	Kind             string        `yaml:"kind"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	BroadcastRate    float64       `yaml:"broadcast_rate"` // messages per second
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

type PracticeConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			FFTSize:         DefaultFFTSize,
			Smoothing:       DefaultSmoothing,
		},
		Analysis: AnalysisConfig{
			PollInterval:   DefaultPollInterval,
			BarCount:       DefaultBarCount,
			Sensitivity:    DefaultSensitivity,
			SoundThreshold: DefaultSoundThreshold,
			ChordThreshold: DefaultChordThreshold,
			InTuneCents:    DefaultInTuneCents,
			Instrument:     DefaultInstrument,
		},
		Metronome: MetronomeConfig{
			BPM:             DefaultBPM,
			BeatsPerMeasure: DefaultBeatsPerMeasure,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			Kind:             DefaultTransport,
			WebSocketAddr:    DefaultWebSocketAddr,
			BroadcastRate:    DefaultBroadcastRate,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
		},
		Practice: PracticeConfig{
			Enabled: true,
			DBPath:  DefaultPracticeDB,
		},
	}
}
