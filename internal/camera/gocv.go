package camera

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/delsi82/color-recognition/internal/services"
)

// GoCVSource acquires frames from a V4L2 device through OpenCV. Readouts
// arrive as BGR8 (the OpenCV default) or Mono8; the requested pixel format
// from configuration is advisory only, the driver decides what it delivers.
type GoCVSource struct {
	device string
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	meta   Metadata
	seq    int64
	begun  bool
}

// NewGoCVSource builds a source for the given device. Numeric strings select
// a capture index, anything else is treated as a device node path.
func NewGoCVSource(device string) *GoCVSource {
	if device == "" {
		device = "0"
	}
	return &GoCVSource{device: device}
}

func (s *GoCVSource) BeginAcquisition(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.begun {
		return services.Wrap(services.ErrDriver, "camera", "begin", "acquisition already started", nil)
	}

	var selector interface{} = s.device
	if idx, err := strconv.Atoi(s.device); err == nil {
		selector = idx
	}

	cap, err := gocv.OpenVideoCapture(selector)
	if err != nil {
		return services.Wrap(services.ErrNoDevice, "camera", "begin",
			fmt.Sprintf("open device %q", s.device), err)
	}
	if !cap.IsOpened() {
		_ = cap.Close()
		return services.Wrap(services.ErrNoDevice, "camera", "begin",
			fmt.Sprintf("device %q did not open", s.device), nil)
	}

	s.cap = cap
	s.mat = gocv.NewMat()
	s.begun = true
	s.meta = Metadata{
		DeviceID:    s.device,
		Description: fmt.Sprintf("V4L2 capture %s", s.device),
		// Property queries can fail on some drivers; zero stays zero and is
		// reported as unknown rather than failing the session.
		Width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}
	return nil
}

func (s *GoCVSource) NextFrame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.begun {
		return nil, services.Wrap(services.ErrDriver, "camera", "next_frame", "acquisition not started", nil)
	}

	if ok := s.cap.Read(&s.mat); !ok {
		return nil, services.Wrap(services.ErrTransient, "camera", "next_frame",
			fmt.Sprintf("read from device %q failed", s.device), nil)
	}
	if s.mat.Empty() {
		return nil, fmt.Errorf("%w: device %q delivered an empty readout", ErrIncompleteFrame, s.device)
	}

	var format PixelFormat
	switch ch := s.mat.Channels(); ch {
	case 3:
		format = FormatBGR8
	case 1:
		format = FormatMono8
	default:
		return nil, services.Wrap(services.ErrDriver, "camera", "next_frame",
			fmt.Sprintf("unsupported channel count %d", ch), nil)
	}

	s.seq++
	// ToBytes copies out of OpenCV memory, so the Mat can be reused for the
	// next readout while the frame is still being scanned.
	return NewFrame(s.mat.Cols(), s.mat.Rows(), format, s.mat.ToBytes(), s.seq, nil), nil
}

func (s *GoCVSource) EndAcquisition() error {
	if !s.begun {
		return nil
	}
	s.begun = false
	var errs []error
	if err := s.mat.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.cap.Close(); err != nil {
		errs = append(errs, err)
	}
	s.cap = nil
	if len(errs) > 0 {
		return services.Wrap(services.ErrDriver, "camera", "end", "release capture resources", errors.Join(errs...))
	}
	return nil
}

func (s *GoCVSource) Metadata() Metadata {
	return s.meta
}
