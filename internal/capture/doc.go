// Package capture implements the capture worker: it watches the capture
// devices selected by the current preview mode, forwards every filled buffer
// to the render worker and returns buffers to their devices once the render
// side acknowledges them.
//
// The mode is an explicit state machine (Machine.Next) with no I/O; the
// worker applies the watch/unwatch effects it returns. Devices keep
// streaming across mode changes and are only unwatched, since several
// drivers fail to restart after STREAMOFF.
//
// Lifecycle of a buffer:
//
//	driver --Dequeue--> Frame --render inbox--> sink upload --Release-->
//	capture inbox (released) --Requeue--> driver
package capture
