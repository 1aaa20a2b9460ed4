package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/camwall/internal/bufpool"
	"github.com/smazurov/camwall/internal/logging"
	"github.com/smazurov/camwall/internal/mailbox"
	"github.com/smazurov/camwall/internal/metrics"
)

// DefaultTarget is the render target passed to RenderFrame.
const DefaultTarget = 0

// Worker uploads frames into a sink and presents on Commit.
type Worker struct {
	sink   Sink
	inbox  *mailbox.Mailbox
	target int
	logger *slog.Logger
}

// New creates a render worker for sink.
func New(sink Sink) *Worker {
	w := &Worker{
		sink:   sink,
		inbox:  mailbox.New(mailbox.WithName("render")),
		target: DefaultTarget,
		logger: logging.GetLogger("render"),
	}
	metrics.RegisterMailbox(w.inbox)
	return w
}

// Inbox returns the mailbox producers push frames and commits to.
func (w *Worker) Inbox() *mailbox.Mailbox {
	return w.inbox
}

// RequestShutdown asks Run to return.
func (w *Worker) RequestShutdown() {
	w.inbox.Shutdown()
}

// Run handles messages until Close or ctx cancellation, which return nil.
// A sink failure stops the worker and is returned. Frames still queued when
// Run returns are released.
func (w *Worker) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, w.RequestShutdown)
	defer stop()
	defer w.drain()

	w.logger.Info("Render worker started")
	for {
		err := w.inbox.Wait().
			Handle(mailbox.On(w.upload)).
			Handle(mailbox.On(w.present)).
			Dispatch()

		switch {
		case errors.Is(err, mailbox.ErrClosed):
			w.logger.Info("Render worker stopped")
			return nil
		case err != nil:
			w.logger.Error("Render worker failed", "error", err)
			return err
		}
	}
}

// upload copies the frame into the sink and returns its buffer to capture.
func (w *Worker) upload(f *bufpool.Frame) error {
	defer f.Release()

	if err := w.sink.UpdateTexture(f); err != nil {
		return fmt.Errorf("update texture for device %d slot %d: %w", f.Device, f.Index, err)
	}
	metrics.RecordUpload(f.Device)
	w.logger.Debug("Uploaded frame", "device", f.Device, "slot", f.Index, "seq", f.Seq)
	return nil
}

func (w *Worker) present(Commit) error {
	if err := w.sink.RenderFrame(w.target); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	metrics.RecordCommit()
	return nil
}

// drain releases frames that will never be uploaded.
func (w *Worker) drain() {
	released := 0
	for {
		msg, ok := w.inbox.TryPop()
		if !ok {
			break
		}
		if f, ok := msg.(*bufpool.Frame); ok {
			f.Release()
			released++
		}
	}
	if released > 0 {
		w.logger.Debug("Released pending frames at shutdown", "count", released)
	}
}
