package display

import (
	"errors"
	"fmt"
)

// PixelOrder is the byte order of a 32-bit captured pixel in memory.
type PixelOrder int

const (
	// OrderBGRX is blue, green, red, padding (XBGR32/ABGR32).
	OrderBGRX PixelOrder = iota
	// OrderRGBX is red, green, blue, padding (RGBX32/RGBA32).
	OrderRGBX
)

func (o PixelOrder) String() string {
	switch o {
	case OrderBGRX:
		return "bgrx"
	case OrderRGBX:
		return "rgbx"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// OrderFor picks the order matching a capture format.
func OrderFor(redFirst bool) PixelOrder {
	if redFirst {
		return OrderRGBX
	}
	return OrderBGRX
}

var errShortFrame = errors.New("frame smaller than texture")

// Swizzle converts src into opaque RGBA in dst. src may be longer than dst
// (drivers pad sizeimage), never shorter.
func Swizzle(dst, src []byte, order PixelOrder) error {
	if len(src) < len(dst) {
		return fmt.Errorf("%w: %d < %d bytes", errShortFrame, len(src), len(dst))
	}
	src = src[:len(dst)]

	switch order {
	case OrderBGRX:
		for i := 0; i+3 < len(dst); i += 4 {
			dst[i+0] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i+0]
			dst[i+3] = 0xff
		}
	case OrderRGBX:
		copy(dst, src)
		for i := 3; i < len(dst); i += 4 {
			dst[i] = 0xff
		}
	default:
		return fmt.Errorf("unknown pixel order %d", order)
	}
	return nil
}
