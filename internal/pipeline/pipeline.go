//go:build linux

// Package pipeline opens the capture devices, wires them to a sink and
// supervises the capture and render workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smazurov/camwall/internal/bufpool"
	"github.com/smazurov/camwall/internal/capture"
	"github.com/smazurov/camwall/internal/events"
	"github.com/smazurov/camwall/internal/logging"
	"github.com/smazurov/camwall/internal/render"
	"github.com/smazurov/camwall/pkg/linuxav/v4l2"
)

// ErrNoDevices is returned when the configuration names no device.
var ErrNoDevices = errors.New("no capture devices configured")

// Config describes the devices and the frame layout they share.
type Config struct {
	// Devices are device nodes or stable device IDs, one per camera.
	Devices  []string
	Geometry bufpool.Geometry
	Depth    int
	// Initial is sent to the capture worker before it starts. Nil means PreviewAll.
	Initial capture.Command
}

// Device is a capture device the pipeline owns.
type Device interface {
	capture.Device
	Close() error
}

// Opener opens the device for entry and registers slots as its buffers.
type Opener func(entry string, slots []bufpool.Slot) (Device, error)

// V4L2Opener opens multi-planar V4L2 devices in pixFmt.
func V4L2Opener(pixFmt v4l2.PixelFormat) Opener {
	return func(entry string, slots []bufpool.Slot) (Device, error) {
		path, err := v4l2.ResolveDevice(entry)
		if err != nil {
			return nil, err
		}
		bufs := make([]v4l2.UserBuffer, len(slots))
		for i, s := range slots {
			bufs[i] = v4l2.UserBuffer{Mem: s.Mem, Width: s.Width, Height: s.Height}
		}
		return v4l2.OpenCapture(path, pixFmt, bufs, v4l2.WithLogger(logging.GetLogger("v4l2").With("device", path)))
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOpener replaces the device opener.
func WithOpener(open Opener) Option {
	return func(p *Pipeline) {
		p.open = open
	}
}

// WithEventBus publishes worker and mode events on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(p *Pipeline) {
		p.bus = bus
	}
}

// Pipeline owns the bank, the devices and both workers.
type Pipeline struct {
	cfg    Config
	open   Opener
	bus    *events.Bus
	logger *slog.Logger

	bank    *bufpool.Bank
	devices []Device
	capture *capture.Worker
	render  *render.Worker
}

// New allocates the frame memory through sink, opens and starts every device
// and builds the workers. On error everything acquired so far is released.
func New(cfg Config, sink render.Sink, opts ...Option) (*Pipeline, error) {
	if len(cfg.Devices) == 0 {
		return nil, ErrNoDevices
	}
	if cfg.Depth < bufpool.MinDepth {
		return nil, fmt.Errorf("%w: %d", bufpool.ErrInvalidDepth, cfg.Depth)
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: logging.GetLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.open == nil {
		return nil, errors.New("pipeline needs a device opener")
	}

	if err := p.setup(sink); err != nil {
		if cerr := p.Close(); cerr != nil {
			p.logger.Warn("Cleanup after failed setup", "error", cerr)
		}
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) setup(sink render.Sink) error {
	bank, err := sink.Initialize(p.cfg.Geometry, len(p.cfg.Devices), p.cfg.Depth)
	if err != nil {
		return fmt.Errorf("initialize sink: %w", err)
	}
	p.bank = bank

	cameras := make([]*capture.Camera, 0, len(p.cfg.Devices))
	for i, entry := range p.cfg.Devices {
		pool, err := bank.Pool(i)
		if err != nil {
			return err
		}
		dev, err := p.open(entry, pool)
		if err != nil {
			return fmt.Errorf("device %d (%s): %w", i, entry, err)
		}
		p.devices = append(p.devices, dev)

		cam, err := capture.NewCamera(i, dev, pool)
		if err != nil {
			return err
		}
		cameras = append(cameras, cam)
	}

	for i, dev := range p.devices {
		if err := dev.Start(); err != nil {
			return fmt.Errorf("start device %d (%s): %w", i, p.cfg.Devices[i], err)
		}
	}

	p.render = render.New(sink)
	var copts []capture.Option
	if p.bus != nil {
		copts = append(copts, capture.WithEventBus(p.bus))
	}
	p.capture, err = capture.New(cameras, p.render.Inbox(), copts...)
	if err != nil {
		return err
	}

	p.logger.Info("Pipeline ready",
		"devices", len(p.devices),
		"width", p.cfg.Geometry.Width,
		"height", p.cfg.Geometry.Height,
		"depth", p.cfg.Depth)
	return nil
}

// Capture returns the capture worker, for sending commands.
func (p *Pipeline) Capture() *capture.Worker {
	return p.capture
}

// Devices returns the number of cameras.
func (p *Pipeline) Devices() int {
	return len(p.devices)
}

// Run runs both workers until one of them stops. A worker that stops, cleanly
// or not, shuts the other down. The first worker error is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	initial := p.cfg.Initial
	if initial == nil {
		initial = capture.PreviewAll{}
	}
	p.capture.Send(initial)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := p.capture.Run(gctx)
		p.exited("capture", err)
		p.render.RequestShutdown()
		return err
	})
	g.Go(func() error {
		err := p.render.Run(gctx)
		p.exited("render", err)
		p.capture.RequestShutdown()
		return err
	})
	return g.Wait()
}

func (p *Pipeline) exited(worker string, err error) {
	if err != nil {
		p.logger.Error("Worker failed", "worker", worker, "error", err)
	} else {
		p.logger.Info("Worker stopped", "worker", worker)
	}
	if p.bus == nil {
		return
	}
	ev := events.WorkerExitedEvent{Worker: worker, Timestamp: time.Now().Format(time.RFC3339)}
	if err != nil {
		ev.Error = err.Error()
	}
	p.bus.Publish(ev)
}

// Close stops and closes the devices, then releases the frame memory.
// The workers must have stopped.
func (p *Pipeline) Close() error {
	var errs []error
	for i, dev := range p.devices {
		if err := dev.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop device %d: %w", i, err))
		}
		if err := dev.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close device %d: %w", i, err))
		}
	}
	p.devices = nil

	if p.bank != nil {
		if err := p.bank.Close(); err != nil {
			errs = append(errs, err)
		}
		p.bank = nil
	}
	return errors.Join(errs...)
}
