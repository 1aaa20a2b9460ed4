//go:build linux

package v4l2

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// Multiplanar reports whether the device supports the multi-planar capture API.
func (d DeviceInfo) Multiplanar() bool {
	return d.Caps&v4l2CapVideoCaptureMplane != 0
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat PixelFormat
	FormatName  string
	Emulated    bool
}

// Format is the capture format a driver agreed to.
type Format struct {
	Width        uint32
	Height       uint32
	PixelFormat  PixelFormat
	SizeImage    uint32
	BytesPerLine uint32
	FPS          float64
}

// UserBuffer is caller-owned memory registered with the driver.
type UserBuffer struct {
	Mem    []byte
	Width  int
	Height int
}

// Capability flags.
const (
	v4l2CapVideoCapture       = 0x00000001
	v4l2CapVideoCaptureMplane = 0x00001000
	v4l2CapStreaming          = 0x04000000
	v4l2CapDeviceCaps         = 0x80000000
)

// Format flags.
const (
	v4l2FmtFlagEmulated = 0x0002
)

// Buffer types.
const (
	v4l2BufTypeVideoCapture       = 1
	v4l2BufTypeVideoCaptureMplane = 9
)

// Memory types.
const (
	v4l2MemoryUserptr = 2
)

// Field order.
const (
	v4l2FieldNone = 1
)
