//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PixelFormat is a V4L2 fourcc code.
type PixelFormat uint32

// fourcc packs four characters the way videodev2.h does.
func fourcc(a, b, c, d byte) PixelFormat {
	return PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// Pixel formats.
var (
	PixFmtXBGR32 = fourcc('X', 'R', '2', '4') // memory order B, G, R, X
	PixFmtABGR32 = fourcc('A', 'R', '2', '4') // memory order B, G, R, A
	PixFmtRGBX32 = fourcc('X', 'B', '2', '4') // memory order R, G, B, X
	PixFmtRGBA32 = fourcc('A', 'B', '2', '4') // memory order R, G, B, A
	PixFmtYUYV   = fourcc('Y', 'U', 'Y', 'V')
	PixFmtMJPEG  = fourcc('M', 'J', 'P', 'G')
	PixFmtNV12   = fourcc('N', 'V', '1', '2')
)

var pixelFormatNames = map[string]PixelFormat{
	"xbgr32": PixFmtXBGR32,
	"abgr32": PixFmtABGR32,
	"rgbx32": PixFmtRGBX32,
	"rgba32": PixFmtRGBA32,
}

// ParsePixelFormat accepts a friendly name (xbgr32) or a fourcc (XR24).
func ParsePixelFormat(name string) (PixelFormat, error) {
	if pf, ok := pixelFormatNames[strings.ToLower(name)]; ok {
		return pf, nil
	}
	if len(name) == 4 {
		pf := fourcc(name[0], name[1], name[2], name[3])
		if pf.BytesPerPixel() > 0 {
			return pf, nil
		}
	}
	return 0, fmt.Errorf("unsupported pixel format %q", name)
}

// BytesPerPixel returns the packed pixel size, or 0 for formats the capture path does not handle.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixFmtXBGR32, PixFmtABGR32, PixFmtRGBX32, PixFmtRGBA32:
		return 4
	default:
		return 0
	}
}

// RedFirst reports whether red is the first byte in memory.
func (p PixelFormat) RedFirst() bool {
	return p == PixFmtRGBX32 || p == PixFmtRGBA32
}

func (p PixelFormat) String() string {
	return FormatFourCC(uint32(p))
}

// GetFormats returns all supported pixel formats for a device, preferring the
// multi-planar capture queue when the device has one.
func GetFormats(devicePath string) ([]FormatInfo, error) {
	fd, err := open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeFd(fd)

	cap := v4l2Capability{}
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&cap)); err != nil {
		return nil, fmt.Errorf("failed to query capabilities: %w", err)
	}

	bufType := uint32(v4l2BufTypeVideoCapture)
	if effectiveCaps(&cap)&v4l2CapVideoCaptureMplane != 0 {
		bufType = v4l2BufTypeVideoCaptureMplane
	}
	return enumFormats(fd, bufType)
}

func enumFormats(fd int, bufType uint32) ([]FormatInfo, error) {
	var formats []FormatInfo

	for i := uint32(0); ; i++ {
		fmtdesc := v4l2Fmtdesc{
			index: i,
			typ:   bufType,
		}

		if ioctlErr := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&fmtdesc)); ioctlErr != nil {
			if errors.Is(ioctlErr, unix.EINVAL) {
				break // End of enumeration
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, ioctlErr)
		}

		formats = append(formats, FormatInfo{
			PixelFormat: PixelFormat(fmtdesc.pixelformat),
			FormatName:  cstr(fmtdesc.description[:]),
			Emulated:    fmtdesc.flags&v4l2FmtFlagEmulated != 0,
		})
	}

	return formats, nil
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}
