package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultFaultInterval = 250 * time.Millisecond

// StreamOptions holds the optional collaborators of a Stream.
type StreamOptions struct {
	Logger zerolog.Logger
	// FaultInterval is how often faults raised on the real-time thread are collected.
	FaultInterval time.Duration
	// OnFaults is called off the real-time thread with the number of new faults.
	OnFaults func(n uint64, last Fault)
}

// Stream is a running hardware capture stream feeding an Accumulator.
type Stream struct {
	device Device
	cfg    Config
	native NativeStream
	acc    *Accumulator
	log    zerolog.Logger
	opts   StreamOptions

	faults    atomic.Uint64
	lastFault atomic.Int32

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// OpenStream opens and starts capture from dev. Every completed block is passed
// to onBlock on the real-time thread; the slice is only valid during the call.
// If any step fails, everything acquired so far is released before returning.
func OpenStream(backend Backend, dev Device, cfg Config, onBlock func(block []float32), opts StreamOptions) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev.MaxInputChannels > 0 && cfg.Channels > dev.MaxInputChannels {
		return nil, fmt.Errorf("%w: %s supports at most %d input channels, requested %d",
			ErrStreamConfig, dev.Name, dev.MaxInputChannels, cfg.Channels)
	}
	if opts.FaultInterval <= 0 {
		opts.FaultInterval = defaultFaultInterval
	}

	acc, err := NewAccumulator(cfg.BlockSize, cfg.Channels, onBlock)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		device: dev,
		cfg:    cfg,
		acc:    acc,
		log:    opts.Logger.With().Str("device", dev.Name).Logger(),
		opts:   opts,
		done:   make(chan struct{}),
	}

	native, err := backend.OpenInput(dev, cfg, s.acc.Process, s.raise)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStreamOpen, err)
	}

	if err := native.Start(); err != nil {
		if cerr := native.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to close stream after start failure")
		}
		return nil, fmt.Errorf("%w: start: %w", ErrStreamOpen, err)
	}
	s.native = native

	s.wg.Add(1)
	go s.watchFaults()

	s.log.Info().
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Int("block_size", cfg.BlockSize).
		Msg("Capture stream started")

	return s, nil
}

// raise runs on the real-time thread.
func (s *Stream) raise(f Fault) {
	s.lastFault.Store(int32(f))
	s.faults.Add(1)
}

func (s *Stream) watchFaults() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.FaultInterval)
	defer ticker.Stop()

	var seen uint64
	for {
		select {
		case <-s.done:
			s.reportFaults(&seen)
			return
		case <-ticker.C:
			s.reportFaults(&seen)
		}
	}
}

func (s *Stream) reportFaults(seen *uint64) {
	total := s.faults.Load()
	if total == *seen {
		return
	}
	n := total - *seen
	*seen = total

	last := s.LastFault()
	s.log.Warn().
		Uint64("new", n).
		Uint64("total", total).
		Stringer("last", last).
		Msg("Audio stream fault")
	if s.opts.OnFaults != nil {
		s.opts.OnFaults(n, last)
	}
}

// Faults returns how many faults the host reported since the stream started.
func (s *Stream) Faults() uint64 {
	return s.faults.Load()
}

// LastFault returns the most recent fault, or 0 if none occurred.
func (s *Stream) LastFault() Fault {
	return Fault(s.lastFault.Load())
}

// Device returns the device the stream captures from.
func (s *Stream) Device() Device {
	return s.device
}

// Config returns the configuration the stream was opened with.
func (s *Stream) Config() Config {
	return s.cfg
}

// Close stops the hardware stream and releases it before returning. Samples
// retained by the accumulator are discarded. Calling Close again is a no-op.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.native.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop: %w", err))
	}
	if err := s.native.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}

	close(s.done)
	s.wg.Wait()

	// The host no longer calls Process once the native stream is closed.
	if pending := s.acc.Pending(); pending > 0 {
		s.log.Debug().Int("samples", pending).Msg("Discarding partial block")
	}
	s.acc.Reset()

	s.log.Info().Msg("Capture stream stopped")
	return errors.Join(errs...)
}
