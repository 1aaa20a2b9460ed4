//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration and multi-planar user-pointer capture.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Capture
//
// OpenCapture negotiates the format, registers caller-owned frame memory as
// user-pointer buffers and queues all of them. The caller drives streaming:
//
//	c, err := v4l2.OpenCapture("/dev/video0", v4l2.PixFmtXBGR32, bufs)
//	if err != nil { ... }
//	defer c.Close()
//	_ = c.Start()
//	idx, ok, err := c.Dequeue() // ok == false: nothing ready yet
//	_ = c.Requeue(idx)
//
// The memory passed to OpenCapture must stay mapped until Close returns.
package v4l2
