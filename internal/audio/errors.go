package audio

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of them.
var (
	ErrEnumeration   = errors.New("audio enumeration error")
	ErrResolution    = errors.New("audio resolution error")
	ErrConfiguration = errors.New("audio configuration error")
	ErrStream        = errors.New("audio stream error")
	ErrState         = errors.New("capture state error")
)

var (
	ErrNoDevicesFound  = fmt.Errorf("%w: no input devices found", ErrEnumeration)
	ErrNoDefaultDevice = fmt.Errorf("%w: no default input device", ErrResolution)
	ErrStreamConfig    = fmt.Errorf("%w: stream configuration rejected", ErrConfiguration)
	ErrStreamOpen      = fmt.Errorf("%w: failed to open stream", ErrStream)
	ErrAlreadyRunning  = fmt.Errorf("%w: capture already running", ErrState)
	ErrNotRunning      = fmt.Errorf("%w: capture not running", ErrState)
)

// DeviceNotFoundError is returned when a name filter matches no input device.
type DeviceNotFoundError struct {
	Name string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("input device %q not found", e.Name)
}

func (e *DeviceNotFoundError) Unwrap() error {
	return ErrResolution
}
