package audio

import "fmt"

// Accumulator downmixes interleaved frames to mono and cuts the result into
// fixed-size blocks, independent of how many frames each callback delivers.
//
// Process is called from the real-time thread and never allocates. The slice
// passed to emit is the accumulator's own buffer: it is only valid for the
// duration of the call and must be copied if kept.
type Accumulator struct {
	channels int
	buf      []float32
	n        int
	emit     func(block []float32)
}

// NewAccumulator allocates the block buffer once; nothing is allocated afterwards.
func NewAccumulator(blockSize, channels int, emit func(block []float32)) (*Accumulator, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", ErrStreamConfig, blockSize)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count must be at least 1, got %d", ErrStreamConfig, channels)
	}
	return &Accumulator{
		channels: channels,
		buf:      make([]float32, blockSize),
		emit:     emit,
	}, nil
}

// Process consumes one callback's worth of interleaved samples. Channel 0 of
// each frame is taken as the mono sample. A trailing partial frame is ignored.
func (a *Accumulator) Process(interleaved []float32) {
	frames := len(interleaved) / a.channels
	if a.channels == 1 {
		a.fill(interleaved[:frames])
		return
	}

	for i := 0; i < frames; i++ {
		a.buf[a.n] = interleaved[i*a.channels]
		a.n++
		if a.n == len(a.buf) {
			a.flush()
		}
	}
}

// fill is the mono fast path: whole runs are copied instead of walked sample by sample.
func (a *Accumulator) fill(samples []float32) {
	for len(samples) > 0 {
		c := copy(a.buf[a.n:], samples)
		a.n += c
		samples = samples[c:]
		if a.n == len(a.buf) {
			a.flush()
		}
	}
}

func (a *Accumulator) flush() {
	if a.emit != nil {
		a.emit(a.buf)
	}
	a.n = 0
}

// Pending returns the number of retained samples that have not yet formed a block.
func (a *Accumulator) Pending() int {
	return a.n
}

// Reset discards retained samples. Partial blocks are never emitted.
func (a *Accumulator) Reset() {
	a.n = 0
}
