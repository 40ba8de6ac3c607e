package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioHost is the Backend backed by the PortAudio library.
type PortAudioHost struct {
	mu     sync.Mutex
	infos  map[string]*portaudio.DeviceInfo
	closed bool
}

// NewPortAudioHost initializes PortAudio. Close must be called to terminate it.
func NewPortAudioHost() (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioHost{infos: make(map[string]*portaudio.DeviceInfo)}, nil
}

func (p *PortAudioHost) Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defaultDevice, _ := portaudio.DefaultInputDevice()

	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		p.infos[d.Name] = d
		result = append(result, toDevice(d, d == defaultDevice))
	}
	return result, nil
}

func (p *PortAudioHost) DefaultInputDevice() (Device, error) {
	d, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("failed to get default input device: %w", err)
	}

	p.mu.Lock()
	p.infos[d.Name] = d
	p.mu.Unlock()

	return toDevice(d, true), nil
}

func (p *PortAudioHost) OpenInput(dev Device, cfg Config, process func(interleaved []float32), fault func(Fault)) (NativeStream, error) {
	info, err := p.lookup(dev.Name)
	if err != nil {
		return nil, err
	}

	stream, err := portaudio.OpenStream(streamParameters(info, cfg), newCallback(process, fault))
	if err != nil {
		if isConfigError(err) {
			return nil, fmt.Errorf("%w: %w", ErrStreamConfig, err)
		}
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

// lookup returns the PortAudio device info for name, re-enumerating if the
// device has not been seen yet.
func (p *PortAudioHost) lookup(name string) (*portaudio.DeviceInfo, error) {
	p.mu.Lock()
	info, ok := p.infos[name]
	p.mu.Unlock()
	if ok {
		return info, nil
	}

	if _, err := p.Devices(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.infos[name]; ok {
		return info, nil
	}
	return nil, &DeviceNotFoundError{Name: name}
}

// Close terminates PortAudio. Calling it again is a no-op.
func (p *PortAudioHost) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}

func streamParameters(info *portaudio.DeviceInfo, cfg Config) portaudio.StreamParameters {
	framesPerBuffer := cfg.FramesPerBuffer
	if framesPerBuffer == 0 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: cfg.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}
}

// newCallback adapts process and fault to the PortAudio callback signature.
// PortAudio only lets trailing parameters be omitted, so the time info must
// be accepted for the flags to be delivered. The callback runs on the
// PortAudio callback thread.
func newCallback(process func(interleaved []float32), fault func(Fault)) func([]float32, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags) {
	return func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.InputOverflow != 0 {
			fault(FaultInputOverflow)
		}
		if flags&portaudio.InputUnderflow != 0 {
			fault(FaultInputUnderflow)
		}
		process(in)
	}
}

func toDevice(d *portaudio.DeviceInfo, isDefault bool) Device {
	return Device{
		Name:              d.Name,
		MaxInputChannels:  d.MaxInputChannels,
		DefaultSampleRate: d.DefaultSampleRate,
		Default:           isDefault,
	}
}

func isConfigError(err error) bool {
	return errors.Is(err, portaudio.InvalidChannelCount) ||
		errors.Is(err, portaudio.InvalidSampleRate) ||
		errors.Is(err, portaudio.SampleFormatNotSupported) ||
		errors.Is(err, portaudio.BadIODeviceCombination)
}
