package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Directory enumerates input devices and resolves name filters against them.
//
// Enumeration order is whatever the backend reports and is not guaranteed to be
// stable between calls, so a filter matching several devices may resolve
// differently across restarts.
type Directory struct {
	backend Backend
}

// NewDirectory creates a device directory over the given backend
func NewDirectory(backend Backend) *Directory {
	return &Directory{backend: backend}
}

// Devices returns all input-capable devices.
func (d *Directory) Devices() ([]Device, error) {
	devices, err := d.backend.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumeration, err)
	}

	result := make([]Device, 0, len(devices))
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			result = append(result, dev)
		}
	}
	if len(result) == 0 {
		return nil, ErrNoDevicesFound
	}
	return result, nil
}

// ListInputDevices returns the display names of all input-capable devices.
func (d *Directory) ListInputDevices() ([]string, error) {
	devices, err := d.Devices()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(devices))
	for i, dev := range devices {
		names[i] = dev.Name
	}
	return names, nil
}

// Resolve returns the system default input device when filter is empty, and
// otherwise the first device whose name contains filter, ignoring case.
func (d *Directory) Resolve(filter string) (Device, error) {
	if filter == "" {
		dev, err := d.backend.DefaultInputDevice()
		if err != nil {
			return Device{}, fmt.Errorf("%w: %w", ErrNoDefaultDevice, err)
		}
		return dev, nil
	}

	devices, err := d.Devices()
	if errors.Is(err, ErrNoDevicesFound) {
		return Device{}, &DeviceNotFoundError{Name: filter}
	}
	if err != nil {
		return Device{}, err
	}

	needle := strings.ToLower(filter)
	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.Name), needle) {
			return dev, nil
		}
	}
	return Device{}, &DeviceNotFoundError{Name: filter}
}
