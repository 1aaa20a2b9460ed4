package bufpool

import (
	"sync/atomic"
	"time"
)

// Frame is a slot the driver has filled and handed out. It stays borrowed
// from its device until the last reference is released.
type Frame struct {
	Slot
	Seq       uint64
	Timestamp time.Time

	refs      atomic.Int32
	onRelease func(*Frame)
}

// NewFrame wraps slot with one reference held by the caller. onRelease runs
// exactly once, when the final reference is dropped.
func NewFrame(slot Slot, seq uint64, onRelease func(*Frame)) *Frame {
	f := &Frame{
		Slot:      slot,
		Seq:       seq,
		Timestamp: time.Now(),
		onRelease: onRelease,
	}
	f.refs.Store(1)
	return f
}

// Bytes returns the pixel data.
func (f *Frame) Bytes() []byte {
	return f.Mem
}

// Retain adds a reference.
func (f *Frame) Retain() *Frame {
	if f.refs.Add(1) <= 1 {
		panic("bufpool: retain of released frame")
	}
	return f
}

// Release drops a reference and returns the slot to its owner on the last one.
func (f *Frame) Release() {
	switch n := f.refs.Add(-1); {
	case n == 0:
		if f.onRelease != nil {
			f.onRelease(f)
		}
	case n < 0:
		panic("bufpool: frame released more times than retained")
	}
}

// Refs returns the current reference count.
func (f *Frame) Refs() int {
	return int(f.refs.Load())
}
