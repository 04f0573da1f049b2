package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"

	"practice/internal/config"
)

// PortAudio entry points, replaceable in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Initialize sets up the PortAudio subsystem. Pair with Terminate.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio subsystem down.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// HostDevices returns every device PortAudio knows about, indexed by ID.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	def, _ := paLibDefaultInputDeviceFunc()

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = deviceFromInfo(i, info, def)
	}
	return devices, nil
}

// InputDevice returns the capture device for deviceID. MinDeviceID (-1)
// selects the system default. Errors wrap ErrDeviceNotFound when no usable
// device matches.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		device, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			if errors.Is(err, portaudio.NoDefaultInputDevice) {
				return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
			}
			return nil, err
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("%w: invalid device ID: %d", ErrDeviceNotFound, deviceID)
	}
	device := devices[deviceID]
	if device.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("%w: device %d (%s) does not support input", ErrDeviceNotFound, deviceID, device.Name)
	}
	return device, nil
}

// OutputDevice returns the playback device for deviceID, -1 for default.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		return paLibDefaultOutputDeviceFunc()
	}
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if device.MaxOutputChannels <= 0 {
		return nil, fmt.Errorf("device %d (%s) does not support output", deviceID, device.Name)
	}
	return device, nil
}

// ListDevices writes a human readable device table to w.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		marker := ""
		if d.IsDefaultInput {
			marker = " *default input*"
		}
		fmt.Fprintf(w, "[%d] %s (%s)%s\n", d.ID, d.Name, d.Kind(), marker)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %s\n", d.Rate())
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n\n",
			d.LowInputLatency.Seconds()*1000,
			d.HighInputLatency.Seconds()*1000)
	}
	return nil
}

// paDevices never returns a nil slice without an error.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
