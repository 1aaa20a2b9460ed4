// Package display composes device frames into an on-screen preview.
//
// Surface implements render.Sink without touching the GPU: uploads land in a
// per-device back image and RenderFrame publishes every back image touched
// since the previous commit in one step. A window (see display/window) reads
// the published images from its own draw loop.
package display

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/smazurov/camwall/internal/bufpool"
	"github.com/smazurov/camwall/internal/events"
	"github.com/smazurov/camwall/internal/logging"
	"github.com/smazurov/camwall/internal/render"
)

// ErrUnsupportedStride is returned for pixel layouts the surface cannot convert.
var ErrUnsupportedStride = errors.New("display needs 4 bytes per pixel")

// Option configures a Surface.
type Option func(*Surface)

// WithPixelOrder sets the memory order of captured pixels.
func WithPixelOrder(order PixelOrder) Option {
	return func(s *Surface) {
		s.order = order
	}
}

// Surface is a render.Sink that double-buffers one RGBA image per device.
type Surface struct {
	order  PixelOrder
	logger *slog.Logger

	// back is only touched by the render goroutine.
	back  []*image.RGBA
	dirty []bool

	mu         sync.RWMutex
	front      []*image.RGBA
	generation uint64
	target     int
	view       View
}

// NewSurface creates an uninitialized surface.
func NewSurface(opts ...Option) *Surface {
	s := &Surface{
		order:  OrderBGRX,
		logger: logging.GetLogger("display"),
		view:   View{Selected: -1},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize implements render.Sink.
func (s *Surface) Initialize(geom bufpool.Geometry, devices, depth int) (*bufpool.Bank, error) {
	if geom.PixelStride != 4 {
		return nil, fmt.Errorf("%w: stride %d", ErrUnsupportedStride, geom.PixelStride)
	}
	bank, err := bufpool.NewBank(geom, devices, depth)
	if err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, geom.Width, geom.Height)
	s.back = make([]*image.RGBA, devices)
	s.dirty = make([]bool, devices)
	front := make([]*image.RGBA, devices)
	for i := range devices {
		s.back[i] = image.NewRGBA(rect)
		front[i] = image.NewRGBA(rect)
	}

	s.mu.Lock()
	s.front = front
	s.mu.Unlock()

	s.logger.Info("Display surface initialized",
		"devices", devices, "width", geom.Width, "height", geom.Height, "order", s.order.String())
	return bank, nil
}

// UpdateTexture implements render.Sink.
func (s *Surface) UpdateTexture(f *bufpool.Frame) error {
	if f.Device < 0 || f.Device >= len(s.back) {
		return &render.UnknownDeviceError{Device: f.Device}
	}
	dst := s.back[f.Device]
	if err := Swizzle(dst.Pix, f.Bytes(), s.order); err != nil {
		return fmt.Errorf("device %d slot %d: %w", f.Device, f.Index, err)
	}
	s.dirty[f.Device] = true
	return nil
}

// RenderFrame implements render.Sink. It publishes the devices uploaded since
// the last commit; the others keep their previous image.
func (s *Surface) RenderFrame(target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.dirty {
		if !d {
			continue
		}
		s.back[i], s.front[i] = s.front[i], s.back[i]
		s.dirty[i] = false
	}
	s.generation++
	s.target = target
	return nil
}

// Generation counts commits.
func (s *Surface) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Devices returns the number of device images.
func (s *Surface) Devices() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.front)
}

// SetView changes what Tiles lays out.
func (s *Surface) SetView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// Follow switches the view on every mode change published on bus.
// The returned function unsubscribes.
func (s *Surface) Follow(bus *events.Bus) func() {
	return bus.Subscribe(func(e events.ModeChangedEvent) {
		s.SetView(ViewFor(e.Mode, e.Selected))
	})
}

// View returns the current layout selection.
func (s *Surface) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Read calls fn with the published images while holding the read lock.
// fn must not keep the images.
func (s *Surface) Read(fn func(view View, images []*image.RGBA)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.view, s.front)
}
