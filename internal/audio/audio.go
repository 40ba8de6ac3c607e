package audio

import "fmt"

// Block is a fixed-length run of mono samples in chronological order.
// Once handed to a consumer it is never touched again by the capture path.
type Block []float32

// Device represents an audio input device
type Device struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// Config is the capture configuration of a single session.
// It is immutable once a stream has been opened with it.
type Config struct {
	SampleRate int
	Channels   int
	BlockSize  int
	// FramesPerBuffer is a hint for the native callback size; 0 lets the driver choose.
	FramesPerBuffer int
}

// DefaultConfig matches the latency budget of the beat detector: 2048 samples at 44.1kHz is ~46ms.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Channels:   1,
		BlockSize:  2048,
	}
}

// Validate rejects configurations no stream can be opened with.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrStreamConfig, c.SampleRate)
	case c.Channels < 1:
		return fmt.Errorf("%w: channel count must be at least 1, got %d", ErrStreamConfig, c.Channels)
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size must be positive, got %d", ErrStreamConfig, c.BlockSize)
	case c.FramesPerBuffer < 0:
		return fmt.Errorf("%w: frames per buffer must not be negative, got %d", ErrStreamConfig, c.FramesPerBuffer)
	}
	return nil
}

// Fault is an asynchronous condition reported by the audio host after a stream started.
type Fault int

const (
	FaultInputOverflow Fault = iota + 1
	FaultInputUnderflow
)

func (f Fault) String() string {
	switch f {
	case FaultInputOverflow:
		return "input overflow"
	case FaultInputUnderflow:
		return "input underflow"
	default:
		return "unknown fault"
	}
}

// Backend is the native audio host the directory and stream driver sit on.
type Backend interface {
	Devices() ([]Device, error)
	DefaultInputDevice() (Device, error)
	// OpenInput opens (but does not start) an input stream. process runs on the
	// host's real-time thread with interleaved samples; fault may be called from there too.
	OpenInput(dev Device, cfg Config, process func(interleaved []float32), fault func(Fault)) (NativeStream, error)
	Close() error
}

// NativeStream is a stream owned by a Backend.
type NativeStream interface {
	Start() error
	Stop() error
	Close() error
}
