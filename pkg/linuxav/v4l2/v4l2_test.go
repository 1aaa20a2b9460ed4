//go:build linux

package v4l2

import (
	"errors"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TestErrnoComparison verifies that errors.Is works with the errno values
// the capture path branches on.
func TestErrnoComparison(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"EAGAIN matches EAGAIN", unix.EAGAIN, unix.EAGAIN, true},
		{"EINTR matches EINTR", unix.EINTR, unix.EINTR, true},
		{"EINVAL matches EINVAL", unix.EINVAL, unix.EINVAL, true},
		{"EAGAIN does not match EINVAL", unix.EAGAIN, unix.EINVAL, false},
		{"wrapped EAGAIN", &ConfigError{Op: "dequeue", Err: unix.EAGAIN}, unix.EAGAIN, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errors.Is(tt.err, tt.target)
			if result != tt.expected {
				t.Errorf("errors.Is(%v, %v) = %v, want %v",
					tt.err, tt.target, result, tt.expected)
			}
		})
	}
}

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		name     string
		format   uint32
		expected string
	}{
		{"XBGR32", uint32(PixFmtXBGR32), "XR24"},
		{"RGBX32", uint32(PixFmtRGBX32), "XB24"},
		{"YUYV", uint32(PixFmtYUYV), "YUYV"},
		{"MJPEG", uint32(PixFmtMJPEG), "MJPG"},
		{"NV12", uint32(PixFmtNV12), "NV12"},
		{"raw value", 0x34325258, "XR24"},
		{"mixed bytes", 0x01020304, "\x04\x03\x02\x01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatFourCC(tt.format)
			if result != tt.expected {
				t.Errorf("FormatFourCC(0x%08X) = %q, want %q", tt.format, result, tt.expected)
			}
		})
	}
}

func TestParsePixelFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected PixelFormat
		bpp      int
		wantErr  bool
	}{
		{"xbgr32", PixFmtXBGR32, 4, false},
		{"XBGR32", PixFmtXBGR32, 4, false},
		{"XR24", PixFmtXBGR32, 4, false},
		{"rgbx32", PixFmtRGBX32, 4, false},
		{"AB24", PixFmtRGBA32, 4, false},
		{"YUYV", 0, 0, true},
		{"bogus", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pf, err := ParsePixelFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePixelFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if pf != tt.expected {
				t.Errorf("ParsePixelFormat(%q) = %s, want %s", tt.input, pf, tt.expected)
			}
			if pf.BytesPerPixel() != tt.bpp {
				t.Errorf("BytesPerPixel() = %d, want %d", pf.BytesPerPixel(), tt.bpp)
			}
		})
	}
}

// TestIoctlNumbers recomputes the request codes from the struct sizes of the
// current architecture.
func TestIoctlNumbers(t *testing.T) {
	const (
		iocWrite = 1
		iocRead  = 2
	)
	ioc := func(dir, nr uintptr, size uintptr) uint {
		return uint(dir<<30 | size<<16 | 'V'<<8 | nr)
	}

	tests := []struct {
		name string
		got  uint
		want uint
	}{
		{"QUERYCAP", vidiocQuerycap, ioc(iocRead, 0, unsafe.Sizeof(v4l2Capability{}))},
		{"ENUM_FMT", vidiocEnumFmt, ioc(iocRead|iocWrite, 2, unsafe.Sizeof(v4l2Fmtdesc{}))},
		{"G_FMT", vidiocGFmt, ioc(iocRead|iocWrite, 4, unsafe.Sizeof(v4l2Format{}))},
		{"S_FMT", vidiocSFmt, ioc(iocRead|iocWrite, 5, unsafe.Sizeof(v4l2Format{}))},
		{"REQBUFS", vidiocReqbufs, ioc(iocRead|iocWrite, 8, unsafe.Sizeof(v4l2RequestBuffers{}))},
		{"QBUF", vidiocQbuf, ioc(iocRead|iocWrite, 15, unsafe.Sizeof(v4l2Buffer{}))},
		{"DQBUF", vidiocDqbuf, ioc(iocRead|iocWrite, 17, unsafe.Sizeof(v4l2Buffer{}))},
		{"STREAMON", vidiocStreamon, ioc(iocWrite, 18, 4)},
		{"STREAMOFF", vidiocStreamoff, ioc(iocWrite, 19, 4)},
		{"G_PARM", vidiocGParm, ioc(iocRead|iocWrite, 21, unsafe.Sizeof(v4l2Streamparm{}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("VIDIOC_%s = 0x%08x, want 0x%08x", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestStructOffsets(t *testing.T) {
	var pix v4l2PixFormatMplane
	if off := unsafe.Offsetof(pix.numPlanes); off != 180 {
		t.Errorf("num_planes offset = %d, want 180", off)
	}

	var parm v4l2CaptureParm
	if off := unsafe.Offsetof(parm.timeperframe); off != 8 {
		t.Errorf("timeperframe offset = %d, want 8", off)
	}

	var buf v4l2Buffer
	wantM := uintptr(64)
	if unsafe.Sizeof(uintptr(0)) == 4 {
		wantM = 52
	}
	if off := unsafe.Offsetof(buf.m); off != wantM {
		t.Errorf("v4l2_buffer.m offset = %d, want %d", off, wantM)
	}
}

func TestOpenCaptureValidation(t *testing.T) {
	mem := func(n int) []byte { return make([]byte, n) }

	tests := []struct {
		name    string
		bufs    []UserBuffer
		wantErr error
	}{
		{
			name:    "no buffers",
			bufs:    nil,
			wantErr: ErrInvalidParams,
		},
		{
			name:    "single buffer",
			bufs:    []UserBuffer{{Mem: mem(64), Width: 4, Height: 4}},
			wantErr: ErrInvalidParams,
		},
		{
			name: "zero width",
			bufs: []UserBuffer{
				{Mem: mem(64), Width: 0, Height: 4},
				{Mem: mem(64), Width: 0, Height: 4},
			},
			wantErr: ErrInvalidParams,
		},
		{
			name: "mismatched sizes",
			bufs: []UserBuffer{
				{Mem: mem(64), Width: 4, Height: 4},
				{Mem: mem(32), Width: 4, Height: 2},
			},
			wantErr: ErrInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenCapture("/dev/null", PixFmtXBGR32, tt.bufs)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("OpenCapture() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenCaptureConfigErrors(t *testing.T) {
	bufs := []UserBuffer{
		{Mem: make([]byte, 64), Width: 4, Height: 4},
		{Mem: make([]byte, 64), Width: 4, Height: 4},
	}

	t.Run("missing device", func(t *testing.T) {
		_, err := OpenCapture("/dev/camwall-does-not-exist", PixFmtXBGR32, bufs)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("OpenCapture() error = %v, want *ConfigError", err)
		}
		if cfgErr.Op != "open" {
			t.Errorf("ConfigError.Op = %q, want open", cfgErr.Op)
		}
		if errors.Is(err, ErrInvalidParams) {
			t.Error("two valid buffers must pass parameter validation")
		}
	})

	t.Run("not a video device", func(t *testing.T) {
		_, err := OpenCapture("/dev/null", PixFmtXBGR32, bufs)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("OpenCapture() error = %v, want *ConfigError", err)
		}
		if cfgErr.Op != "query capabilities" {
			t.Errorf("ConfigError.Op = %q, want query capabilities", cfgErr.Op)
		}
	})
}

func TestCheckNegotiated(t *testing.T) {
	buf := UserBuffer{Mem: make([]byte, 64*48*4), Width: 64, Height: 48}
	exact := Format{Width: 64, Height: 48, PixelFormat: PixFmtXBGR32, BytesPerLine: 256, SizeImage: 64 * 48 * 4}

	tests := []struct {
		name    string
		modify  func(*Format)
		wantErr error
	}{
		{"exact match", func(*Format) {}, nil},
		{"bytesperline unreported", func(f *Format) { f.BytesPerLine = 0 }, nil},
		{"substituted fourcc", func(f *Format) { f.PixelFormat = PixFmtRGBX32 }, ErrFormatMismatch},
		{"other width", func(f *Format) { f.Width = 32 }, ErrFormatMismatch},
		{"other height", func(f *Format) { f.Height = 720 }, ErrFormatMismatch},
		{"padded lines", func(f *Format) { f.BytesPerLine = 320 }, ErrFormatMismatch},
		{"image larger than buffer", func(f *Format) { f.SizeImage = uint32(len(buf.Mem) + 1) }, ErrBufferTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exact
			tt.modify(&got)
			err := checkNegotiated(got, PixFmtXBGR32, buf)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkNegotiated() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkNegotiated() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCstr(t *testing.T) {
	if got := cstr([]byte("uvcvideo\x00\x00junk")); got != "uvcvideo" {
		t.Errorf("cstr() = %q, want uvcvideo", got)
	}
	if got := cstr([]byte("full")); got != "full" {
		t.Errorf("cstr() = %q, want full", got)
	}
}

func TestSyntheticID(t *testing.T) {
	if got := syntheticID("usb-0000:00:14.0-1", 0); got != "usb-0000:00:14.0-1-video-index0" {
		t.Errorf("syntheticID(usb) = %q", got)
	}
	if got := syntheticID("platform:rkcif", 2); got != "platform-platform:rkcif-video-index2" {
		t.Errorf("syntheticID(platform) = %q", got)
	}
}
