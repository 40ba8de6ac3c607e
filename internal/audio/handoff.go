package audio

import (
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
)

// HandoffObserver is notified of every send outcome. Its methods are called on
// the real-time thread and must not block or allocate.
type HandoffObserver interface {
	BlockSent()
	BlockDropped()
	SendFailed()
}

// Handoff is a bounded single-producer/single-consumer ring carrying blocks
// from the real-time thread to ordinary goroutines.
//
// The producer side is wait-free: Send touches only atomics and a pre-allocated
// slot. When the ring is full the newest block is dropped, so queued blocks are
// never overwritten or reordered. Consumers are serialized by a mutex the
// producer never takes.
type Handoff struct {
	blockSize int
	slots     [][]float32

	// head is advanced only by the consumer, tail only by the producer.
	head atomic.Uint64
	tail atomic.Uint64

	detached atomic.Bool
	sent     atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64

	observer HandoffObserver

	mu sync.Mutex
}

// MaxQueueSamples bounds the samples a Handoff pre-allocates across all of
// its slots (64 MiB of float32).
const MaxQueueSamples = 1 << 24

// CheckQueueSize rejects a ring of capacity blocks of blockSize samples that
// would pre-allocate more than MaxQueueSamples.
func CheckQueueSize(capacity, blockSize int) error {
	if capacity < 1 || blockSize < 1 {
		return fmt.Errorf("%w: queue capacity and block size must be positive, got %d and %d", ErrStreamConfig, capacity, blockSize)
	}
	if capacity > MaxQueueSamples/blockSize {
		return fmt.Errorf("%w: queue of %d blocks of %d samples exceeds %d samples", ErrStreamConfig, capacity, blockSize, MaxQueueSamples)
	}
	return nil
}

// NewHandoff pre-allocates capacity slots of blockSize samples each.
func NewHandoff(capacity, blockSize int, observer HandoffObserver) *Handoff {
	if capacity < 1 {
		capacity = 1
	}
	backing := make([]float32, capacity*blockSize)
	slots := make([][]float32, capacity)
	for i := range slots {
		slots[i] = backing[i*blockSize : (i+1)*blockSize : (i+1)*blockSize]
	}
	return &Handoff{
		blockSize: blockSize,
		slots:     slots,
		observer:  observer,
	}
}

// Send copies block into the next free slot. It returns false when the block
// was dropped because the ring is full, the consumer detached, or the block
// has the wrong length. It never blocks.
func (h *Handoff) Send(block []float32) bool {
	if h.detached.Load() || len(block) != h.blockSize {
		h.failed.Add(1)
		if h.observer != nil {
			h.observer.SendFailed()
		}
		return false
	}

	t := h.tail.Load()
	if t-h.head.Load() >= uint64(len(h.slots)) {
		h.dropped.Add(1)
		if h.observer != nil {
			h.observer.BlockDropped()
		}
		return false
	}

	copy(h.slots[t%uint64(len(h.slots))], block)
	h.tail.Store(t + 1)
	h.sent.Add(1)
	if h.observer != nil {
		h.observer.BlockSent()
	}
	return true
}

// TryDrain returns the blocks queued at the time of the call, oldest first.
// It never waits for new blocks; blocks arriving during iteration are left for
// the next call. Each yielded block is owned by the caller.
func (h *Handoff) TryDrain() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		end := h.tail.Load()
		for {
			b, ok := h.pop(end)
			if !ok || !yield(b) {
				return
			}
		}
	}
}

// Drain collects TryDrain into a slice.
func (h *Handoff) Drain() []Block {
	var blocks []Block
	for b := range h.TryDrain() {
		blocks = append(blocks, b)
	}
	return blocks
}

func (h *Handoff) pop(end uint64) (Block, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	head := h.head.Load()
	if head >= end || head == h.tail.Load() {
		return nil, false
	}

	b := make(Block, h.blockSize)
	copy(b, h.slots[head%uint64(len(h.slots))])
	h.head.Store(head + 1)
	return b, true
}

// Len returns the number of queued blocks.
func (h *Handoff) Len() int {
	head := h.head.Load()
	return int(h.tail.Load() - head)
}

// Cap returns the ring capacity in blocks.
func (h *Handoff) Cap() int {
	return len(h.slots)
}

// Detach marks the consumer as gone. Later sends fail and are counted.
func (h *Handoff) Detach() {
	h.detached.Store(true)
}

// Sent returns the number of blocks accepted into the ring.
func (h *Handoff) Sent() uint64 { return h.sent.Load() }

// Dropped returns the number of blocks discarded because the ring was full.
func (h *Handoff) Dropped() uint64 { return h.dropped.Load() }

// Failed returns the number of sends rejected after Detach or for a bad length.
func (h *Handoff) Failed() uint64 { return h.failed.Load() }
