package capture

import (
	"errors"
	"fmt"

	"github.com/smazurov/camwall/internal/bufpool"
)

var (
	// ErrSlotMismatch is returned when a released frame does not describe the slot it claims.
	ErrSlotMismatch = errors.New("released frame does not match its pool slot")
	// ErrNotInFlight is returned when a slot is released that the render side does not hold.
	ErrNotInFlight = errors.New("slot is not in flight")
)

// Device is a streaming capture device as seen by the worker.
type Device interface {
	Fd() int
	Start() error
	Stop() error
	// Dequeue returns the index of a filled buffer; ok is false when none is ready.
	Dequeue() (index int, ok bool, err error)
	Requeue(index int) error
}

// Camera binds a device to the pool slots registered with it.
type Camera struct {
	index    int
	dev      Device
	slots    []bufpool.Slot
	inFlight []bool
	seq      uint64
	release  func(*bufpool.Frame)
}

// NewCamera checks that slots form the pool of device index.
func NewCamera(index int, dev Device, slots []bufpool.Slot) (*Camera, error) {
	if len(slots) < bufpool.MinDepth {
		return nil, fmt.Errorf("camera %d: %w: %d slots", index, bufpool.ErrInvalidDepth, len(slots))
	}
	for i, s := range slots {
		if s.Device != index || s.Index != i {
			return nil, fmt.Errorf("camera %d: slot %d belongs to device %d position %d", index, i, s.Device, s.Index)
		}
	}
	return &Camera{
		index:    index,
		dev:      dev,
		slots:    slots,
		inFlight: make([]bool, len(slots)),
	}, nil
}

// Index returns the device index.
func (c *Camera) Index() int {
	return c.index
}

// Device returns the underlying device.
func (c *Camera) Device() Device {
	return c.dev
}

// InFlight returns how many slots are currently held by the render side.
func (c *Camera) InFlight() int {
	n := 0
	for _, f := range c.inFlight {
		if f {
			n++
		}
	}
	return n
}

// dequeue takes one filled buffer and wraps it in a frame. It returns nil
// when the device had nothing ready.
func (c *Camera) dequeue() (*bufpool.Frame, error) {
	idx, ok, err := c.dev.Dequeue()
	if err != nil {
		return nil, fmt.Errorf("camera %d: %w", c.index, err)
	}
	if !ok {
		return nil, nil
	}
	if idx < 0 || idx >= len(c.slots) {
		return nil, fmt.Errorf("camera %d: driver returned buffer %d of %d", c.index, idx, len(c.slots))
	}
	if c.inFlight[idx] {
		return nil, fmt.Errorf("camera %d: driver returned buffer %d twice", c.index, idx)
	}

	c.inFlight[idx] = true
	c.seq++
	return bufpool.NewFrame(c.slots[idx], c.seq, c.release), nil
}

// requeue hands the slot of f back to the device, exactly once per dequeue.
func (c *Camera) requeue(f *bufpool.Frame) error {
	idx := f.Index
	if idx < 0 || idx >= len(c.slots) || !c.slots[idx].Same(f.Slot) {
		return fmt.Errorf("camera %d: %w: slot %d", c.index, ErrSlotMismatch, idx)
	}
	if !c.inFlight[idx] {
		return fmt.Errorf("camera %d: %w: slot %d", c.index, ErrNotInFlight, idx)
	}
	if err := c.dev.Requeue(idx); err != nil {
		return fmt.Errorf("camera %d: %w", c.index, err)
	}
	c.inFlight[idx] = false
	return nil
}
