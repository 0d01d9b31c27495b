package camera

import (
	"errors"
	"fmt"
	"strings"
)

// PixelFormat identifies the sample layout of a raw frame buffer.
type PixelFormat int

const (
	// FormatUnknown marks frames whose layout could not be determined.
	FormatUnknown PixelFormat = iota
	// FormatRGB8 is 3 bytes per pixel, R G B order.
	FormatRGB8
	// FormatBGR8 is 3 bytes per pixel, B G R order (OpenCV native).
	FormatBGR8
	// FormatMono8 is 1 byte per pixel grayscale.
	FormatMono8
	// FormatYUYV is the packed 4:2:2 format common on UVC webcams, 2 bytes
	// per pixel averaged over a 2-pixel macropixel.
	FormatYUYV
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGB8:
		return "rgb8"
	case FormatBGR8:
		return "bgr8"
	case FormatMono8:
		return "mono8"
	case FormatYUYV:
		return "yuyv"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the packed byte width of one pixel, or 0 when the
// format is unknown.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGB8, FormatBGR8:
		return 3
	case FormatMono8:
		return 1
	case FormatYUYV:
		return 2
	default:
		return 0
	}
}

// ParsePixelFormat maps a config hint to a PixelFormat. Empty and "auto"
// resolve to FormatUnknown, meaning the source decides.
func ParsePixelFormat(value string) (PixelFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return FormatUnknown, nil
	case "rgb8":
		return FormatRGB8, nil
	case "bgr8":
		return FormatBGR8, nil
	case "mono8":
		return FormatMono8, nil
	case "yuyv":
		return FormatYUYV, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported pixel format %q", value)
	}
}

// ErrIncompleteFrame marks a partial sensor readout. Wrapping errors carry
// the driver status code in their message.
var ErrIncompleteFrame = errors.New("incomplete frame")

// Frame is one raw image captured for a single acquisition cycle. The
// receiving loop iteration owns it exclusively and must call Release on
// every exit path before requesting the next frame.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Data   []byte
	// Seq is the source-assigned acquisition sequence, starting at 1.
	Seq int64

	released    bool
	releaseHook func()
}

// NewFrame builds a frame owning the provided buffer. releaseHook may be nil;
// when set it runs once, on the first Release call.
func NewFrame(width, height int, format PixelFormat, data []byte, seq int64, releaseHook func()) *Frame {
	return &Frame{
		Width:       width,
		Height:      height,
		Format:      format,
		Data:        data,
		Seq:         seq,
		releaseHook: releaseHook,
	}
}

// Release returns the frame's buffer. Calling it again is a no-op.
func (f *Frame) Release() {
	if f == nil || f.released {
		return
	}
	f.released = true
	f.Data = nil
	if f.releaseHook != nil {
		f.releaseHook()
	}
}

// Released reports whether Release has run.
func (f *Frame) Released() bool {
	return f != nil && f.released
}

// Metadata describes the device behind a source. Degraded reads leave their
// fields at zero values: a zero Width/Height logs as "unknown" and an empty
// DeviceID yields an empty device segment in output filenames.
type Metadata struct {
	DeviceID    string
	Description string
	Width       int
	Height      int
}

// DimensionLabel renders a frame dimension for logs, substituting the
// degraded-read placeholder when the value is unusable.
func DimensionLabel(value int) string {
	if value <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", value)
}
