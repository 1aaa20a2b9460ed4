// Package mailbox provides the typed message channel that connects the
// capture and render workers.
//
// # Mailbox
//
// A Mailbox is an unbounded FIFO with any number of producers and exactly
// one consumer. Push never blocks and never fails; Pop blocks until a
// message is available:
//
//	mb := mailbox.New(mailbox.WithName("render"))
//	mb.Push(frame)
//	msg := mb.Pop()
//
// # Handler chains
//
// Consumers describe what they accept for the current phase with a handler
// chain and then call Dispatch, which processes exactly one handled message:
//
//	err := mb.Wait().
//		Handle(mailbox.On(func(f *bufpool.Frame) error { return upload(f) })).
//		Handle(mailbox.On(func(render.Commit) error { return present() })).
//		Dispatch()
//
// Handlers are tried most-recently-registered first. A message no handler
// accepts is dropped (logged at debug and counted), except Close, which
// makes Dispatch return ErrClosed. Poll is the non-blocking variant used
// by loops that have other work to do while the mailbox is empty.
package mailbox
