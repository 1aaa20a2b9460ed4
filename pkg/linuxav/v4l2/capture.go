//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MinBuffers is the smallest number of buffers a capture queue can stream with.
const MinBuffers = 2

var (
	// ErrInvalidParams is returned for buffer sets OpenCapture cannot use.
	ErrInvalidParams = errors.New("invalid capture parameters")
	// ErrNotMultiplanar is returned for devices without the multi-planar capture API.
	ErrNotMultiplanar = errors.New("device does not support multi-planar capture")
	// ErrTooFewBuffers is returned when the driver grants fewer than MinBuffers.
	ErrTooFewBuffers = errors.New("driver granted too few buffers")
	// ErrBufferTooSmall is returned when the negotiated image does not fit a buffer.
	ErrBufferTooSmall = errors.New("buffer smaller than negotiated image")
	// ErrBadIndex is returned for buffer indices outside the registered set.
	ErrBadIndex = errors.New("buffer index out of range")
	// ErrFormatMismatch is returned when the driver negotiates a format other than the one requested.
	ErrFormatMismatch = errors.New("driver negotiated a different format")
)

// ConfigError reports a device that could not be configured for capture.
type ConfigError struct {
	Path string
	Op   string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("v4l2 %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Option configures OpenCapture.
type Option func(*Capture)

// WithLogger sets the logger used for negotiation details.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capture) {
		c.logger = logger
	}
}

// Capture is an open multi-planar capture device streaming into user memory.
type Capture struct {
	path   string
	fd     int
	bufs   []UserBuffer
	format Format
	logger *slog.Logger

	mu        sync.Mutex
	streaming bool
	drained   bool // STREAMOFF returned every buffer to userspace
}

// OpenCapture opens path, negotiates pixFmt at the size of the buffers and
// queues every buffer. The buffers must share one size and outlive Close.
func OpenCapture(path string, pixFmt PixelFormat, bufs []UserBuffer, opts ...Option) (*Capture, error) {
	if err := validateBuffers(bufs); err != nil {
		return nil, err
	}

	c := &Capture{
		path:   path,
		fd:     -1,
		bufs:   bufs,
		logger: slog.With("component", "v4l2"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("device", path)

	fd, err := open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Op: "open", Err: err}
	}
	c.fd = fd

	if err := c.configure(pixFmt); err != nil {
		_ = closeFd(fd)
		return nil, err
	}
	return c, nil
}

func validateBuffers(bufs []UserBuffer) error {
	if len(bufs) < MinBuffers {
		return fmt.Errorf("%w: need at least %d buffers, got %d", ErrInvalidParams, MinBuffers, len(bufs))
	}
	first := bufs[0]
	if first.Width <= 0 || first.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidParams, first.Width, first.Height)
	}
	for i, b := range bufs {
		if len(b.Mem) == 0 {
			return fmt.Errorf("%w: buffer %d has no memory", ErrInvalidParams, i)
		}
		if b.Width != first.Width || b.Height != first.Height || len(b.Mem) != len(first.Mem) {
			return fmt.Errorf("%w: buffer %d differs from buffer 0", ErrInvalidParams, i)
		}
	}
	return nil
}

func (c *Capture) configure(pixFmt PixelFormat) error {
	cap := v4l2Capability{}
	if err := ioctl(c.fd, vidiocQuerycap, unsafe.Pointer(&cap)); err != nil {
		return &ConfigError{Path: c.path, Op: "query capabilities", Err: err}
	}
	caps := effectiveCaps(&cap)
	if caps&v4l2CapVideoCaptureMplane == 0 {
		return &ConfigError{Path: c.path, Op: "query capabilities", Err: ErrNotMultiplanar}
	}
	c.logger.Info("Opened capture device", "card", cstr(cap.card[:]), "driver", cstr(cap.driver[:]))

	if formats, err := enumFormats(c.fd, v4l2BufTypeVideoCaptureMplane); err != nil {
		c.logger.Debug("Format enumeration failed", "error", err)
	} else {
		for _, f := range formats {
			c.logger.Debug("Supported format", "fourcc", f.PixelFormat.String(), "name", f.FormatName, "emulated", f.Emulated)
		}
	}

	if err := c.setFormat(pixFmt); err != nil {
		return err
	}
	if err := c.requestBuffers(); err != nil {
		return err
	}
	for i := range c.bufs {
		if err := c.queue(i); err != nil {
			return &ConfigError{Path: c.path, Op: fmt.Sprintf("queue buffer %d", i), Err: err}
		}
	}
	return nil
}

func (c *Capture) setFormat(pixFmt PixelFormat) error {
	f := v4l2Format{typ: v4l2BufTypeVideoCaptureMplane}
	pix := f.pixMp()
	pix.width = uint32(c.bufs[0].Width)
	pix.height = uint32(c.bufs[0].Height)
	pix.pixelformat = uint32(pixFmt)
	pix.field = v4l2FieldNone
	pix.numPlanes = 1

	if err := ioctl(c.fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return &ConfigError{Path: c.path, Op: "set format", Err: err}
	}

	f = v4l2Format{typ: v4l2BufTypeVideoCaptureMplane}
	if err := ioctl(c.fd, vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return &ConfigError{Path: c.path, Op: "get format", Err: err}
	}
	pix = f.pixMp()

	c.format = Format{
		Width:        pix.width,
		Height:       pix.height,
		PixelFormat:  PixelFormat(pix.pixelformat),
		SizeImage:    pix.planeFmt[0].sizeimage,
		BytesPerLine: pix.planeFmt[0].bytesperline,
		FPS:          c.frameRate(),
	}
	c.logger.Info("Negotiated capture format",
		"width", c.format.Width,
		"height", c.format.Height,
		"sizeimage", c.format.SizeImage,
		"bytesperline", c.format.BytesPerLine,
		"fourcc", c.format.PixelFormat.String(),
		"fps", c.format.FPS)

	if err := checkNegotiated(c.format, pixFmt, c.bufs[0]); err != nil {
		return &ConfigError{Path: c.path, Op: "set format", Err: err}
	}
	return nil
}

// checkNegotiated rejects a format the buffers cannot hold as requested:
// a substituted fourcc, another frame size, padded lines or an image larger
// than the buffer.
func checkNegotiated(got Format, want PixelFormat, buf UserBuffer) error {
	if got.PixelFormat != want {
		return fmt.Errorf("%w: pixel format %s, requested %s", ErrFormatMismatch, got.PixelFormat, want)
	}
	if int(got.Width) != buf.Width || int(got.Height) != buf.Height {
		return fmt.Errorf("%w: frame size %dx%d, requested %dx%d", ErrFormatMismatch, got.Width, got.Height, buf.Width, buf.Height)
	}
	if bpp := want.BytesPerPixel(); bpp > 0 && got.BytesPerLine != 0 && int(got.BytesPerLine) != buf.Width*bpp {
		return fmt.Errorf("%w: %d bytes per line, expected %d", ErrFormatMismatch, got.BytesPerLine, buf.Width*bpp)
	}
	if int(got.SizeImage) > len(buf.Mem) {
		return fmt.Errorf("%w: image %d bytes, buffer %d bytes", ErrBufferTooSmall, got.SizeImage, len(buf.Mem))
	}
	return nil
}

// frameRate reads the current frame interval; zero when the driver does not report one.
func (c *Capture) frameRate() float64 {
	parm := v4l2Streamparm{typ: v4l2BufTypeVideoCaptureMplane}
	if err := ioctl(c.fd, vidiocGParm, unsafe.Pointer(&parm)); err != nil {
		return 0
	}
	tpf := parm.capture().timeperframe
	if tpf.numerator == 0 {
		return 0
	}
	return float64(tpf.denominator) / float64(tpf.numerator)
}

func (c *Capture) requestBuffers() error {
	req := v4l2RequestBuffers{
		count:  uint32(len(c.bufs)),
		typ:    v4l2BufTypeVideoCaptureMplane,
		memory: v4l2MemoryUserptr,
	}
	if err := ioctl(c.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return &ConfigError{Path: c.path, Op: "request user-pointer buffers", Err: err}
	}
	if req.count < MinBuffers {
		return &ConfigError{
			Path: c.path,
			Op:   "request user-pointer buffers",
			Err:  fmt.Errorf("%w: %d", ErrTooFewBuffers, req.count),
		}
	}
	if int(req.count) < len(c.bufs) {
		c.logger.Warn("Driver granted fewer buffers than requested", "requested", len(c.bufs), "granted", req.count)
		c.bufs = c.bufs[:req.count]
	}
	return nil
}

// queue hands buffer index to the driver using the memory registered at open.
func (c *Capture) queue(index int) error {
	mem := c.bufs[index].Mem
	plane := &v4l2Plane{
		m:      uintptr(unsafe.Pointer(&mem[0])),
		length: uint32(len(mem)),
	}
	buf := v4l2Buffer{
		index:  uint32(index),
		typ:    v4l2BufTypeVideoCaptureMplane,
		memory: v4l2MemoryUserptr,
		m:      unsafe.Pointer(plane),
		length: 1,
	}
	err := ioctl(c.fd, vidiocQbuf, unsafe.Pointer(&buf))
	runtime.KeepAlive(plane)
	return err
}

// Path returns the device node.
func (c *Capture) Path() string {
	return c.path
}

// Format returns the negotiated format.
func (c *Capture) Format() Format {
	return c.format
}

// Buffers returns how many buffers the driver accepted.
func (c *Capture) Buffers() int {
	return len(c.bufs)
}

// Fd returns the descriptor to watch for readability.
func (c *Capture) Fd() int {
	return c.fd
}

// Start turns streaming on. Buffers returned by a previous Stop are queued again first.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming {
		return nil
	}
	if c.drained {
		for i := range c.bufs {
			if err := c.queue(i); err != nil {
				return fmt.Errorf("requeue buffer %d on %s: %w", i, c.path, err)
			}
		}
		c.drained = false
	}

	typ := uint32(v4l2BufTypeVideoCaptureMplane)
	if err := ioctl(c.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("stream on %s: %w", c.path, err)
	}
	c.streaming = true
	c.logger.Debug("Streaming started")
	return nil
}

// Stop turns streaming off. The driver returns every queued buffer.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.streaming {
		return nil
	}
	typ := uint32(v4l2BufTypeVideoCaptureMplane)
	if err := ioctl(c.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("stream off %s: %w", c.path, err)
	}
	c.streaming = false
	c.drained = true
	c.logger.Debug("Streaming stopped")
	return nil
}

// Dequeue takes the next filled buffer. ok is false when none is ready.
func (c *Capture) Dequeue() (index int, ok bool, err error) {
	var plane v4l2Plane
	buf := v4l2Buffer{
		typ:    v4l2BufTypeVideoCaptureMplane,
		memory: v4l2MemoryUserptr,
		m:      unsafe.Pointer(&plane),
		length: 1,
	}
	err = ioctl(c.fd, vidiocDqbuf, unsafe.Pointer(&buf))
	runtime.KeepAlive(&plane)

	if errors.Is(err, unix.EAGAIN) {
		return -1, false, nil
	}
	if err != nil {
		return -1, false, fmt.Errorf("dequeue buffer on %s: %w", c.path, err)
	}
	if int(buf.index) >= len(c.bufs) {
		return -1, false, fmt.Errorf("dequeue buffer on %s: %w: %d", c.path, ErrBadIndex, buf.index)
	}
	return int(buf.index), true, nil
}

// Requeue returns buffer index to the driver.
func (c *Capture) Requeue(index int) error {
	if index < 0 || index >= len(c.bufs) {
		return fmt.Errorf("requeue buffer on %s: %w: %d", c.path, ErrBadIndex, index)
	}
	if err := c.queue(index); err != nil {
		return fmt.Errorf("requeue buffer %d on %s: %w", index, c.path, err)
	}
	return nil
}

// Close releases the descriptor. The kernel stops streaming and drops its
// references to the user buffers.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fd < 0 {
		return nil
	}
	err := closeFd(c.fd)
	c.fd = -1
	c.streaming = false
	return err
}
