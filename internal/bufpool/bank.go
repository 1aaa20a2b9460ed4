// Package bufpool owns the frame memory shared between capture devices and
// the render sink.
//
// Every slot is allocated once, page aligned and outside the Go heap, so its
// address can be registered with a V4L2 driver as a user pointer and stays
// valid until the bank is closed.
package bufpool

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// MinDepth is the smallest pool a device can stream with.
const MinDepth = 2

var (
	// ErrInvalidGeometry is returned for non-positive frame dimensions.
	ErrInvalidGeometry = errors.New("invalid frame geometry")
	// ErrInvalidDepth is returned when fewer than MinDepth slots are requested.
	ErrInvalidDepth = errors.New("buffer pool depth too small")
	// ErrBankClosed is returned when a closed bank is used.
	ErrBankClosed = errors.New("buffer bank closed")
)

// Geometry describes the frame layout all slots share.
type Geometry struct {
	Width       int
	Height      int
	PixelStride int // bytes per pixel
}

// FrameSize returns the byte length of one frame.
func (g Geometry) FrameSize() int {
	return g.Width * g.Height * g.PixelStride
}

// Validate checks that all dimensions are positive.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.PixelStride <= 0 {
		return fmt.Errorf("%w: %dx%d stride %d", ErrInvalidGeometry, g.Width, g.Height, g.PixelStride)
	}
	return nil
}

// Slot is one frame buffer of a device pool.
type Slot struct {
	Mem    []byte
	Width  int
	Height int
	Device int // owning device index
	Index  int // position in the device pool
}

// Addr returns the base address of the slot memory.
func (s Slot) Addr() uintptr {
	if len(s.Mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&s.Mem[0]))
}

// Len returns the byte length of the slot memory.
func (s Slot) Len() int {
	return len(s.Mem)
}

// Same reports whether both slots describe the same memory region of the same pool position.
func (s Slot) Same(o Slot) bool {
	return s.Device == o.Device && s.Index == o.Index && s.Addr() == o.Addr() && s.Len() == o.Len()
}

// Bank holds the pools of every device.
type Bank struct {
	mu      sync.Mutex
	geom    Geometry
	pools   [][]Slot
	regions [][]byte
	closed  bool
}

// NewBank allocates depth slots for each of devices.
func NewBank(geom Geometry, devices, depth int) (*Bank, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if depth < MinDepth {
		return nil, fmt.Errorf("%w: %d (minimum %d)", ErrInvalidDepth, depth, MinDepth)
	}
	if devices <= 0 {
		return nil, fmt.Errorf("bank needs at least one device, got %d", devices)
	}

	b := &Bank{
		geom:  geom,
		pools: make([][]Slot, devices),
	}
	size := geom.FrameSize()
	for dev := range devices {
		b.pools[dev] = make([]Slot, depth)
		for i := range depth {
			region, err := allocRegion(size)
			if err != nil {
				_ = b.Close()
				return nil, fmt.Errorf("allocate slot %d of device %d: %w", i, dev, err)
			}
			b.regions = append(b.regions, region)
			b.pools[dev][i] = Slot{
				Mem:    region[:size:size],
				Width:  geom.Width,
				Height: geom.Height,
				Device: dev,
				Index:  i,
			}
		}
	}
	return b, nil
}

// Geometry returns the shared frame layout.
func (b *Bank) Geometry() Geometry {
	return b.geom
}

// Devices returns the number of device pools.
func (b *Bank) Devices() int {
	return len(b.pools)
}

// Depth returns the number of slots per device.
func (b *Bank) Depth() int {
	if len(b.pools) == 0 {
		return 0
	}
	return len(b.pools[0])
}

// Pool returns a copy of the slot descriptors of one device.
func (b *Bank) Pool(device int) ([]Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBankClosed
	}
	if device < 0 || device >= len(b.pools) {
		return nil, fmt.Errorf("device %d out of range [0,%d)", device, len(b.pools))
	}
	out := make([]Slot, len(b.pools[device]))
	copy(out, b.pools[device])
	return out, nil
}

// Close releases all slot memory. Devices still referencing it must be closed first.
func (b *Bank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, region := range b.regions {
		if err := freeRegion(region); err != nil {
			errs = append(errs, err)
		}
	}
	b.regions = nil
	return errors.Join(errs...)
}
