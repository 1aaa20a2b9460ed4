package render

import (
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/smazurov/camwall/internal/bufpool"
)

// StatsSink is a headless sink. It keeps per-device counters and a checksum
// of the last uploaded frame instead of drawing anything.
type StatsSink struct {
	mu       sync.Mutex
	pools    [][]bufpool.Slot
	devices  []TextureStats
	presents uint64
	pending  int
}

// TextureStats describes the texture of one device.
type TextureStats struct {
	Uploads  uint64
	LastSeq  uint64
	LastSlot int
	Checksum uint32
}

// NewStatsSink creates an empty headless sink.
func NewStatsSink() *StatsSink {
	return &StatsSink{}
}

// Initialize implements Sink.
func (s *StatsSink) Initialize(geom bufpool.Geometry, devices, depth int) (*bufpool.Bank, error) {
	bank, err := bufpool.NewBank(geom, devices, depth)
	if err != nil {
		return nil, err
	}

	pools := make([][]bufpool.Slot, devices)
	for i := range pools {
		if pools[i], err = bank.Pool(i); err != nil {
			_ = bank.Close()
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = pools
	s.devices = make([]TextureStats, devices)
	for i := range s.devices {
		s.devices[i].LastSlot = -1
	}
	return bank, nil
}

// UpdateTexture implements Sink. Frames must come from the bank handed out
// by Initialize.
func (s *StatsSink) UpdateTexture(f *bufpool.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Device < 0 || f.Device >= len(s.devices) {
		return &UnknownDeviceError{Device: f.Device}
	}
	pool := s.pools[f.Device]
	if f.Index < 0 || f.Index >= len(pool) || !pool[f.Index].Same(f.Slot) {
		return fmt.Errorf("%w: device %d slot %d", ErrForeignFrame, f.Device, f.Index)
	}

	sum := crc32.ChecksumIEEE(f.Bytes())
	t := &s.devices[f.Device]
	t.Uploads++
	t.LastSeq = f.Seq
	t.LastSlot = f.Index
	t.Checksum = sum
	s.pending++
	return nil
}

// RenderFrame implements Sink.
func (s *StatsSink) RenderFrame(int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presents++
	s.pending = 0
	return nil
}

// Texture returns the counters of one device.
func (s *StatsSink) Texture(device int) (TextureStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if device < 0 || device >= len(s.devices) {
		return TextureStats{}, false
	}
	return s.devices[device], true
}

// Presents returns how many times RenderFrame ran.
func (s *StatsSink) Presents() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Pending returns uploads not yet presented.
func (s *StatsSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
