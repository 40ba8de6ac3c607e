// Package audiotest provides an in-memory audio.Backend for tests.
package audiotest

import (
	"errors"
	"sync"

	"github.com/petems/beatcap/internal/audio"
)

// ErrNoDefault is returned by DefaultInputDevice when no device is marked default.
var ErrNoDefault = errors.New("audiotest: no default device")

// Backend is a fake audio host. Streams it opens deliver samples only when
// the test calls Feed.
type Backend struct {
	mu         sync.Mutex
	devices    []audio.Device
	devicesErr error
	openErr    error
	startErr   error
	streams    []*Stream
	closed     bool
}

// NewBackend creates a backend listing devices in the given order.
func NewBackend(devices ...audio.Device) *Backend {
	return &Backend{devices: devices}
}

// FailDevices makes enumeration fail with err until cleared with nil.
func (b *Backend) FailDevices(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devicesErr = err
}

// FailOpen makes OpenInput fail with err until cleared with nil.
func (b *Backend) FailOpen(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openErr = err
}

// FailStart makes NativeStream.Start fail with err until cleared with nil.
func (b *Backend) FailStart(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startErr = err
}

func (b *Backend) Devices() ([]audio.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.devicesErr != nil {
		return nil, b.devicesErr
	}
	return append([]audio.Device(nil), b.devices...), nil
}

func (b *Backend) DefaultInputDevice() (audio.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		if d.Default {
			return d, nil
		}
	}
	return audio.Device{}, ErrNoDefault
}

func (b *Backend) OpenInput(dev audio.Device, cfg audio.Config, process func([]float32), fault func(audio.Fault)) (audio.NativeStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	s := &Stream{
		device:   dev,
		config:   cfg,
		process:  process,
		fault:    fault,
		startErr: b.startErr,
	}
	b.streams = append(b.streams, s)
	return s, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// LastStream returns the most recently opened stream, or nil.
func (b *Backend) LastStream() *Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.streams) == 0 {
		return nil
	}
	return b.streams[len(b.streams)-1]
}

// OpenStreams returns how many opened streams have not been closed.
func (b *Backend) OpenStreams() int {
	b.mu.Lock()
	streams := append([]*Stream(nil), b.streams...)
	b.mu.Unlock()

	n := 0
	for _, s := range streams {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// Stream is a fake native stream.
type Stream struct {
	mu       sync.Mutex
	device   audio.Device
	config   audio.Config
	process  func([]float32)
	fault    func(audio.Fault)
	startErr error
	started  bool
	closed   bool
}

func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.closed = true
	return nil
}

// Feed delivers one callback's worth of interleaved samples, as the host's
// real-time thread would. It returns false if the stream is not running.
func (s *Stream) Feed(interleaved []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return false
	}
	s.process(interleaved)
	return true
}

// Raise reports a fault as the host's real-time thread would.
func (s *Stream) Raise(f audio.Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.fault(f)
	}
}

// Closed reports whether the stream was closed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Device returns the device the stream was opened for.
func (s *Stream) Device() audio.Device {
	return s.device
}

// Config returns the configuration the stream was opened with.
func (s *Stream) Config() audio.Config {
	return s.config
}
