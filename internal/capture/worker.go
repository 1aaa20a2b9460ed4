//go:build linux

package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/camwall/internal/bufpool"
	"github.com/smazurov/camwall/internal/events"
	"github.com/smazurov/camwall/internal/logging"
	"github.com/smazurov/camwall/internal/mailbox"
	"github.com/smazurov/camwall/internal/metrics"
	"github.com/smazurov/camwall/internal/render"
)

// Option configures a Worker.
type Option func(*Worker)

// WithEventBus publishes mode changes and rejected commands on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(w *Worker) {
		w.bus = bus
	}
}

// WithLogger replaces the module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// Worker multiplexes the cameras into the render inbox.
type Worker struct {
	cameras []*Camera
	inbox   *mailbox.Mailbox
	render  *mailbox.Mailbox
	machine Machine
	bus     *events.Bus
	logger  *slog.Logger

	poll  atomic.Pointer[poller]
	mu    sync.RWMutex
	state State
}

// New creates a worker for cameras that forwards frames to renderInbox.
// Camera i must have index i.
func New(cameras []*Camera, renderInbox *mailbox.Mailbox, opts ...Option) (*Worker, error) {
	if len(cameras) == 0 {
		return nil, errors.New("capture worker needs at least one camera")
	}
	for i, c := range cameras {
		if c.index != i {
			return nil, fmt.Errorf("camera at position %d has index %d", i, c.index)
		}
	}

	w := &Worker{
		cameras: cameras,
		render:  renderInbox,
		machine: Machine{Devices: len(cameras)},
		logger:  logging.GetLogger("capture"),
		state:   Idle,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.inbox = mailbox.New(mailbox.WithName("capture"), mailbox.WithNotify(w.wake))

	for _, c := range cameras {
		c.release = w.acknowledge
	}
	metrics.RegisterMailbox(w.inbox)
	return w, nil
}

// Inbox returns the worker mailbox.
func (w *Worker) Inbox() *mailbox.Mailbox {
	return w.inbox
}

// Send queues a command. Shutdown is delivered as the mailbox Close message.
func (w *Worker) Send(cmd Command) {
	if _, ok := cmd.(Shutdown); ok {
		w.RequestShutdown()
		return
	}
	w.inbox.Push(cmd)
}

// RequestShutdown asks Run to return.
func (w *Worker) RequestShutdown() {
	w.inbox.Shutdown()
}

// State returns the current mode.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Devices returns the number of cameras.
func (w *Worker) Devices() int {
	return len(w.cameras)
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// acknowledge runs when the last reference to a frame is dropped, on whatever
// goroutine dropped it.
func (w *Worker) acknowledge(f *bufpool.Frame) {
	w.inbox.Push(released{frame: f})
}

func (w *Worker) wake() {
	if p := w.poll.Load(); p != nil {
		p.wake()
	}
}

// Run processes commands and frames until shutdown or ctx cancellation,
// which both return nil. Multiplexer and driver failures are returned.
// Devices are left streaming; closing them is up to the caller.
func (w *Worker) Run(ctx context.Context) error {
	p, err := newPoller(len(w.cameras))
	if err != nil {
		return err
	}
	w.poll.Store(p)
	defer func() {
		w.poll.Store(nil)
		if err := p.close(); err != nil {
			w.logger.Warn("Failed to close poller", "error", err)
		}
	}()

	stop := context.AfterFunc(ctx, w.RequestShutdown)
	defer stop()

	w.logger.Info("Capture worker started", "devices", len(w.cameras))
	for {
		cmd, err := w.next(p)
		switch {
		case errors.Is(err, mailbox.ErrClosed):
			cmd = Shutdown{}
		case err != nil:
			w.logger.Error("Capture worker failed", "state", w.State().String(), "error", err)
			return err
		}
		if cmd == nil {
			continue
		}

		if err := w.apply(p, cmd); err != nil {
			w.logger.Error("Capture worker failed", "state", w.State().String(), "error", err)
			return err
		}
		if w.State().Mode == ModeClosed {
			w.logger.Info("Capture worker stopped")
			return nil
		}
	}
}

// next returns the next mode command. While streaming it services devices
// until a message is pending; otherwise it blocks on the mailbox.
// Acknowledgements are handled inline and yield a nil command.
func (w *Worker) next(p *poller) (Command, error) {
	var cmd Command
	chain := w.inbox.Wait().
		Handle(mailbox.On(func(c PreviewAll) error { cmd = c; return nil })).
		Handle(mailbox.On(func(c PreviewOne) error { cmd = c; return nil })).
		Handle(mailbox.On(func(c Back) error { cmd = c; return nil })).
		Handle(mailbox.On(func(r released) error { return w.requeue(r.frame) }))

	if !w.State().Streaming() {
		err := chain.Dispatch()
		return cmd, err
	}

	for {
		handled, err := chain.Poll()
		if handled || err != nil {
			return cmd, err
		}
		if err := w.service(p); err != nil {
			return nil, err
		}
	}
}

// service waits once for readiness and forwards one frame per ready device.
func (w *Worker) service(p *poller) error {
	ids, err := p.wait()
	if err != nil {
		return err
	}
	slices.Sort(ids)

	state := w.State()
	forwarded := 0
	for _, id := range ids {
		// readiness reported for a device unwatched since the wait started
		if !p.watching(id) {
			continue
		}
		cam := w.cameras[id]
		frame, err := cam.dequeue()
		if err != nil {
			return err
		}
		if frame == nil {
			continue
		}

		metrics.RecordDequeue(id)
		w.logger.Debug("Forwarding frame", "device", id, "slot", frame.Index, "seq", frame.Seq)
		w.render.Push(frame)
		forwarded++

		if state.Mode == ModePreviewOne {
			w.render.Push(render.Commit{})
		}
	}

	if state.Mode == ModePreviewAll && forwarded > 0 {
		w.render.Push(render.Commit{})
	}
	return nil
}

func (w *Worker) requeue(f *bufpool.Frame) error {
	if f.Device < 0 || f.Device >= len(w.cameras) {
		return fmt.Errorf("%w: released frame from device %d", ErrSlotMismatch, f.Device)
	}
	if err := w.cameras[f.Device].requeue(f); err != nil {
		return err
	}
	metrics.RecordRequeue(f.Device)
	return nil
}

// apply runs cmd through the state machine and updates the registrations.
func (w *Worker) apply(p *poller, cmd Command) error {
	prev := w.State()
	next, effects, err := w.machine.Next(prev, cmd)
	if err != nil {
		w.logger.Warn("Rejected command", "command", cmd, "state", prev.String(), "error", err)
		w.publish(events.CommandRejectedEvent{
			Command:   fmt.Sprint(cmd),
			Reason:    err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return nil
	}
	if next == prev {
		return nil
	}

	for _, e := range effects {
		switch e.Kind {
		case Watch:
			if err := p.add(e.Device, w.cameras[e.Device].dev.Fd()); err != nil {
				return err
			}
		case Unwatch:
			if err := p.remove(e.Device); err != nil {
				if next.Mode != ModeClosed {
					return err
				}
				w.logger.Warn("Failed to unwatch device during shutdown", "device", e.Device, "error", err)
			}
		}
	}

	w.setState(next)
	metrics.SetMode(next.Mode.String(), next.Selected)
	w.logger.Info("Preview mode changed", "from", prev.String(), "to", next.String())
	w.publish(events.ModeChangedEvent{
		Mode:      next.Mode.String(),
		Selected:  next.Selected,
		Previous:  prev.Mode.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

func (w *Worker) publish(ev events.Event) {
	if w.bus != nil {
		w.bus.Publish(ev)
	}
}
