package audio

import "fmt"

// DeviceError means no usable input device is available. User-actionable:
// plug in or configure a microphone.
type DeviceError struct {
	Reason string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device unavailable: %s", e.Reason)
}

// CaptureError means the input stream failed for a reason other than device
// availability.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("audio capture failed (%s): %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// FrameSizeError means a frame handed to the detector does not match the
// configured frame size. This is a wiring fault, not a transient condition.
type FrameSizeError struct {
	Got  int
	Want int
}

func (e *FrameSizeError) Error() string {
	return fmt.Sprintf("frame size mismatch: got %d samples, want %d", e.Got, e.Want)
}
