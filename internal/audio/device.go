package audio

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gordonklaus/portaudio"
)

// Device describes a host audio device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
	IsDefaultInput    bool
}

// Kind returns "Input", "Output" or "Input/Output".
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "Unavailable"
	}
}

// CanCapture reports whether the device has at least one input channel.
func (d Device) CanCapture() bool { return d.MaxInputChannels > 0 }

// Rate returns the default sample rate in SI form, e.g. "44.1 kHz".
func (d Device) Rate() string {
	return humanize.SIWithDigits(d.DefaultSampleRate, 1, "Hz")
}

func (d Device) String() string {
	return fmt.Sprintf("[%d] %s (%s, %s)", d.ID, d.Name, d.Kind(), d.Rate())
}

func deviceFromInfo(id int, info *portaudio.DeviceInfo, defaultInput *portaudio.DeviceInfo) Device {
	d := Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowInputLatency:   info.DefaultLowInputLatency,
		HighInputLatency:  info.DefaultHighInputLatency,
		IsDefaultInput:    defaultInput != nil && info == defaultInput,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
	}
	return d
}
