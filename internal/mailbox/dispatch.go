package mailbox

import "errors"

// ErrClosed is returned by Dispatch and Poll when Close was received and no
// handler claimed it.
var ErrClosed = errors.New("mailbox closed")

// Handler is a single link of a handler chain. Build one with On.
type Handler struct {
	try func(msg any) (bool, error)
}

// On returns a handler that accepts messages of dynamic type T.
func On[T any](fn func(T) error) Handler {
	return Handler{
		try: func(msg any) (bool, error) {
			v, ok := msg.(T)
			if !ok {
				return false, nil
			}
			return true, fn(v)
		},
	}
}

// Dispatcher is a handler chain bound to a mailbox.
type Dispatcher struct {
	mb       *Mailbox
	handlers []Handler
}

// Wait starts a new handler chain for this mailbox.
func (m *Mailbox) Wait() *Dispatcher {
	return &Dispatcher{mb: m}
}

// Handle adds h to the chain. Later handlers take precedence over earlier ones.
func (d *Dispatcher) Handle(h Handler) *Dispatcher {
	d.handlers = append(d.handlers, h)
	return d
}

// Dispatch blocks until one message has been handled and returns the
// handler's error. Unhandled messages are dropped along the way.
func (d *Dispatcher) Dispatch() error {
	for {
		if handled, err := d.deliver(d.mb.Pop()); handled {
			return err
		}
	}
}

// Poll handles at most one message without blocking. It returns false when
// the mailbox ran empty before any message was handled.
func (d *Dispatcher) Poll() (bool, error) {
	for {
		msg, ok := d.mb.TryPop()
		if !ok {
			return false, nil
		}
		if handled, err := d.deliver(msg); handled {
			return true, err
		}
	}
}

func (d *Dispatcher) deliver(msg any) (bool, error) {
	for i := len(d.handlers) - 1; i >= 0; i-- {
		if ok, err := d.handlers[i].try(msg); ok {
			return true, err
		}
	}
	if _, ok := msg.(Close); ok {
		return true, ErrClosed
	}
	d.mb.drop(msg)
	return false, nil
}
