package core

import "sync/atomic"

// Handoff slot states
const (
	handoffEmpty uint32 = iota
	handoffPublished
	handoffAcquired
)

// Handoff passes one completed frame from the SPI interrupt handler to the
// main loop. The interrupt side calls Publish and Retract, the main loop
// calls Acquire and Release. Neither side ever waits for the other.
type Handoff struct {
	state atomic.Uint32
}

// Publish marks a frame as ready. It fails if the previous frame has not
// been released yet.
func (h *Handoff) Publish() bool {
	return h.state.CompareAndSwap(handoffEmpty, handoffPublished)
}

// Acquire takes ownership of a published frame
func (h *Handoff) Acquire() bool {
	return h.state.CompareAndSwap(handoffPublished, handoffAcquired)
}

// Release gives the frame buffer back to the interrupt side
func (h *Handoff) Release() {
	h.state.Store(handoffEmpty)
}

// Retract withdraws a frame the main loop has not picked up yet. A frame
// that was already acquired stays with the main loop.
func (h *Handoff) Retract() bool {
	return h.state.CompareAndSwap(handoffPublished, handoffEmpty)
}

// Busy reports whether a frame is published or held by the main loop
func (h *Handoff) Busy() bool {
	return h.state.Load() != handoffEmpty
}

// Held reports whether the main loop currently owns the frame
func (h *Handoff) Held() bool {
	return h.state.Load() == handoffAcquired
}
