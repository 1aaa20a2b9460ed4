//go:build linux

package v4l2

import "unsafe"

// Structures whose layout does not depend on the word size.

// v4l2PlanePixFormat has size 20 bytes.
type v4l2PlanePixFormat struct {
	sizeimage    uint32    // offset 0
	bytesperline uint32    // offset 4
	reserved     [6]uint16 // offset 8
}

// v4l2PixFormatMplane has size 192 bytes (packed in the kernel headers).
type v4l2PixFormatMplane struct {
	width        uint32                // offset 0
	height       uint32                // offset 4
	pixelformat  uint32                // offset 8
	field        uint32                // offset 12
	colorspace   uint32                // offset 16
	planeFmt     [8]v4l2PlanePixFormat // offset 20
	numPlanes    uint8                 // offset 180
	flags        uint8                 // offset 181
	ycbcrEnc     uint8                 // offset 182
	quantization uint8                 // offset 183
	xferFunc     uint8                 // offset 184
	reserved     [7]uint8              // offset 185
}

// pixMp views the format union as a multi-planar pixel format.
func (f *v4l2Format) pixMp() *v4l2PixFormatMplane {
	return (*v4l2PixFormatMplane)(unsafe.Pointer(&f.fmt[0]))
}

// v4l2RequestBuffers has size 20 bytes.
type v4l2RequestBuffers struct {
	count        uint32   // offset 0
	typ          uint32   // offset 4
	memory       uint32   // offset 8
	capabilities uint32   // offset 12
	flags        uint8    // offset 16
	reserved     [3]uint8 // offset 17
}

// v4l2Fract has size 8 bytes.
type v4l2Fract struct {
	numerator   uint32
	denominator uint32
}

// v4l2CaptureParm is the capture member of the streamparm union.
type v4l2CaptureParm struct {
	capability   uint32    // offset 0
	capturemode  uint32    // offset 4
	timeperframe v4l2Fract // offset 8
	extendedmode uint32    // offset 16
	readbuffers  uint32    // offset 20
	reserved     [4]uint32 // offset 24
}

// v4l2Streamparm has size 204 bytes.
type v4l2Streamparm struct {
	typ  uint32    // offset 0
	parm [200]byte // offset 4
}

func (p *v4l2Streamparm) capture() *v4l2CaptureParm {
	return (*v4l2CaptureParm)(unsafe.Pointer(&p.parm[0]))
}
