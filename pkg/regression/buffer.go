package regression

import "sync"

// SampleBuffer is a bounded FIFO of training samples. The cycle driver
// owns one buffer per ROP agent, which keeps the agent free of hidden
// cross-call state.
type SampleBuffer struct {
	mu      sync.Mutex
	maxSize int
	samples []Sample
}

// NewSampleBuffer creates a buffer keeping the most recent maxSize samples.
func NewSampleBuffer(maxSize int) *SampleBuffer {
	if maxSize < 1 {
		maxSize = 1
	}
	return &SampleBuffer{maxSize: maxSize}
}

// Add appends s, evicting the oldest sample when full.
func (b *SampleBuffer) Add(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, s)
	if len(b.samples) > b.maxSize {
		b.samples = b.samples[len(b.samples)-b.maxSize:]
	}
}

// Len returns the buffered sample count.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Snapshot returns a copy of the buffered samples, oldest first.
func (b *SampleBuffer) Snapshot() []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Restore replaces the buffer contents, keeping at most maxSize of the
// newest samples. Used when reloading a persisted buffer at startup.
func (b *SampleBuffer) Restore(samples []Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(samples) > b.maxSize {
		samples = samples[len(samples)-b.maxSize:]
	}
	b.samples = append([]Sample{}, samples...)
}
