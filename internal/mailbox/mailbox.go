package mailbox

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/smazurov/camwall/internal/logging"
)

// Close asks the consumer of a mailbox to stop. It is the only message every
// handler chain understands without registering a handler for it.
type Close struct{}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithName labels the mailbox in logs and metrics.
func WithName(name string) Option {
	return func(m *Mailbox) {
		m.name = name
	}
}

// WithNotify installs a hook that runs after every Push, outside the lock.
// The capture worker uses it to interrupt its readiness wait.
func WithNotify(fn func()) Option {
	return func(m *Mailbox) {
		m.notify = fn
	}
}

// Mailbox is an unbounded multi-producer, single-consumer message queue.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []any
	name   string
	notify func()

	dropped atomic.Uint64
	logger  *slog.Logger
}

// New creates an empty mailbox.
func New(opts ...Option) *Mailbox {
	m := &Mailbox{
		name:   "mailbox",
		logger: logging.GetLogger("mailbox"),
	}
	m.cond = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("mailbox", m.name)
	return m
}

// Name returns the label given with WithName.
func (m *Mailbox) Name() string {
	return m.name
}

// Push appends msg and wakes the consumer.
func (m *Mailbox) Push(msg any) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()
	m.cond.Signal()

	if m.notify != nil {
		m.notify()
	}
}

// Shutdown pushes Close.
func (m *Mailbox) Shutdown() {
	m.Push(Close{})
}

// Pop removes and returns the oldest message, blocking while the mailbox is empty.
func (m *Mailbox) Pop() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) == 0 {
		m.cond.Wait()
	}
	return m.popLocked()
}

// TryPop is Pop without blocking.
func (m *Mailbox) TryPop() (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, false
	}
	return m.popLocked(), true
}

func (m *Mailbox) popLocked() any {
	msg := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	if len(m.queue) == 0 {
		// drop the consumed prefix of the backing array
		m.queue = m.queue[:0:0]
	}
	return msg
}

// Empty reports whether the mailbox currently holds no messages.
func (m *Mailbox) Empty() bool {
	return m.Len() == 0
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Dropped returns how many messages were discarded because no handler accepted them.
func (m *Mailbox) Dropped() uint64 {
	return m.dropped.Load()
}

func (m *Mailbox) drop(msg any) {
	m.dropped.Add(1)
	m.logger.Debug("Dropped unhandled message", "type", fmt.Sprintf("%T", msg))
}
