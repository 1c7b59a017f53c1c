package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DeviceProbe answers whether a default input device with the requested
// channel count exists. Injectable so tests can simulate a missing
// microphone without touching real hardware.
type DeviceProbe interface {
	CheckInput(channels int) error
}

type portaudioProbe struct{}

func (portaudioProbe) CheckInput(channels int) error {
	if err := portaudio.Initialize(); err != nil {
		return &CaptureError{Op: "init", Err: err}
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return &DeviceError{Reason: "no microphone configured"}
	}
	if dev.MaxInputChannels < channels {
		return &DeviceError{Reason: fmt.Sprintf("input device %q has %d channels, need %d", dev.Name, dev.MaxInputChannels, channels)}
	}
	return nil
}
