package app

import (
	"fmt"
	"iter"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/beatcap/internal/audio"
	"github.com/petems/beatcap/internal/metrics"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = fmt.Errorf("%w: capture controller closed", audio.ErrState)

const defaultQueueCapacity = 256

type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetCapturing(device string)
	SetError(err error)
}

type Config struct {
	Backend       audio.Backend
	Audio         audio.Config
	QueueCapacity int
	Logger        zerolog.Logger
	Metrics       *metrics.Capture // Optional - can be nil
	StatusUpdater StatusUpdater    // Optional - can be nil
}

// Status is a snapshot of the controller.
type Status struct {
	State     State
	Device    string // empty unless Running
	Faults    uint64
	LastFault audio.Fault
	Queued    int
	Dropped   uint64
}

// App owns at most one capture session. Callers never see the stream or the
// queue producer; blocks are consumed through DrainAvailableBlocks or Blocks.
type App struct {
	backend  audio.Backend
	dir      *audio.Directory
	audioCfg audio.Config
	queueCap int
	log      zerolog.Logger
	metrics  *metrics.Capture
	status   StatusUpdater

	// opMu serializes Start, Stop and Close. mu guards the fields below and is
	// never held across a call into the backend, so Status never blocks on a
	// hung driver.
	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	stream  *audio.Stream
	handoff *audio.Handoff
	device  string
	closed  bool
}

func New(cfg Config) *App {
	queueCap := cfg.QueueCapacity
	if queueCap <= 0 {
		queueCap = defaultQueueCapacity
	}
	return &App{
		backend:  cfg.Backend,
		dir:      audio.NewDirectory(cfg.Backend),
		audioCfg: cfg.Audio,
		queueCap: queueCap,
		log:      cfg.Logger.With().Str("component", "capture").Logger(),
		metrics:  cfg.Metrics,
		status:   cfg.StatusUpdater,
	}
}

// Start resolves the device matching filter (the default device when empty),
// opens a stream on it and begins queueing blocks. It fails fast with
// audio.ErrAlreadyRunning unless the controller is Idle. On failure nothing
// stays acquired and the controller is Idle again.
func (a *App) Start(filter string) (string, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return "", ErrClosed
	}
	if a.state != Idle {
		a.mu.Unlock()
		return "", audio.ErrAlreadyRunning
	}
	a.state = Starting
	a.mu.Unlock()

	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		a.setState(Idle)
		return "", ErrClosed
	}

	a.log.Info().Str("filter", filter).Msg("Starting capture")

	stream, handoff, err := a.open(filter)
	if err != nil {
		a.setState(Idle)
		a.log.Error().Err(err).Str("filter", filter).Msg("Failed to start capture")
		if a.status != nil {
			a.status.SetError(err)
		}
		return "", err
	}

	name := stream.Device().Name

	a.mu.Lock()
	if a.handoff != nil {
		a.handoff.Detach()
	}
	a.stream = stream
	a.handoff = handoff
	a.device = name
	a.state = Running
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.SetRunning(true)
	}
	if a.status != nil {
		a.status.SetCapturing(name)
	}
	a.log.Info().Str("device", name).Msg("Capture running")
	return name, nil
}

func (a *App) open(filter string) (*audio.Stream, *audio.Handoff, error) {
	if err := audio.CheckQueueSize(a.queueCap, a.audioCfg.BlockSize); err != nil {
		return nil, nil, err
	}

	dev, err := a.dir.Resolve(filter)
	if err != nil {
		return nil, nil, err
	}
	a.log.Info().Str("device", dev.Name).Msg("Selected input device")

	var observer audio.HandoffObserver
	opts := audio.StreamOptions{Logger: a.log}
	if a.metrics != nil {
		observer = a.metrics
		opts.OnFaults = a.metrics.Faults
	}

	handoff := audio.NewHandoff(a.queueCap, a.audioCfg.BlockSize, observer)
	send := func(block []float32) { handoff.Send(block) }

	stream, err := audio.OpenStream(a.backend, dev, a.audioCfg, send, opts)
	if err != nil {
		handoff.Detach()
		return nil, nil, err
	}
	return stream, handoff, nil
}

// Stop ends the running session. Blocks already queued stay available to
// DrainAvailableBlocks until the next Start. Stop never fails and is a no-op
// when nothing is running.
func (a *App) Stop() {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.stopLocked()
}

func (a *App) stopLocked() {
	a.mu.Lock()
	if a.state != Running {
		a.mu.Unlock()
		return
	}
	a.state = Stopping
	stream := a.stream
	a.mu.Unlock()

	a.log.Info().Str("device", stream.Device().Name).Msg("Stopping capture")
	if err := stream.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Error while closing capture stream")
	}

	a.mu.Lock()
	a.stream = nil
	a.device = ""
	a.state = Idle
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.SetRunning(false)
	}
	if a.status != nil {
		a.status.SetIdle()
	}
}

// Close stops any running session and releases the audio backend. It must be
// called before the process exits; calling it again is a no-op.
func (a *App) Close() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.stopLocked()

	a.mu.Lock()
	if a.handoff != nil {
		a.handoff.Detach()
	}
	a.mu.Unlock()

	if err := a.backend.Close(); err != nil {
		return fmt.Errorf("closing audio backend: %w", err)
	}
	return nil
}

// Status returns the current state. It never blocks on the audio backend.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{State: a.state}
	if a.state == Running {
		st.Device = a.device
	}
	if a.stream != nil {
		st.Faults = a.stream.Faults()
		st.LastFault = a.stream.LastFault()
	}
	if a.handoff != nil {
		st.Queued = a.handoff.Len()
		st.Dropped = a.handoff.Dropped()
	}
	return st
}

// CurrentDevice returns the active device name, or false when not running.
func (a *App) CurrentDevice() (string, bool) {
	st := a.Status()
	return st.Device, st.State == Running
}

// CheckSignal returns how many blocks are waiting to be drained.
func (a *App) CheckSignal() (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.state != Running {
		return 0, audio.ErrNotRunning
	}
	n := a.handoff.Len()
	if a.metrics != nil {
		a.metrics.QueuedBlocks.Set(float64(n))
	}
	return n, nil
}

// Blocks yields the blocks queued at call time, oldest first, without waiting.
func (a *App) Blocks() iter.Seq[audio.Block] {
	a.mu.RLock()
	h := a.handoff
	a.mu.RUnlock()

	if h == nil {
		return func(func(audio.Block) bool) {}
	}
	return h.TryDrain()
}

// DrainAvailableBlocks returns every queued block, oldest first.
func (a *App) DrainAvailableBlocks() []audio.Block {
	var blocks []audio.Block
	for b := range a.Blocks() {
		blocks = append(blocks, b)
	}
	if a.metrics != nil {
		a.metrics.QueuedBlocks.Set(float64(a.Status().Queued))
	}
	return blocks
}

// ListDevices returns the names of all input devices.
func (a *App) ListDevices() ([]string, error) {
	return a.dir.ListInputDevices()
}

// Devices returns all input devices with their capabilities.
func (a *App) Devices() ([]audio.Device, error) {
	return a.dir.Devices()
}

func (a *App) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}
