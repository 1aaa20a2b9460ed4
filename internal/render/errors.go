package render

import (
	"errors"
	"fmt"
)

// ErrForeignFrame is returned for a frame whose memory is not a slot of the sink's bank.
var ErrForeignFrame = errors.New("frame is not from the sink bank")

// UnknownDeviceError is returned by sinks for frames from a device they were not initialized for.
type UnknownDeviceError struct {
	Device int
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("no texture for device %d", e.Device)
}
