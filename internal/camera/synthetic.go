package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/delsi82/color-recognition/internal/services"
)

// FrameScript produces the outcome of one NextFrame call. Returning an error
// wrapping ErrIncompleteFrame or services.ErrTransient exercises the same
// paths a hardware driver would.
type FrameScript func(seq int64) (*Frame, error)

// SyntheticSource serves generated frames through the FrameSource contract.
// Tests, the demo run mode, and benchmarks use it in place of hardware.
type SyntheticSource struct {
	meta   Metadata
	script FrameScript
	begun  bool
	seq    int64
}

// NewSyntheticSource builds a source that asks script for every frame.
func NewSyntheticSource(meta Metadata, script FrameScript) *SyntheticSource {
	return &SyntheticSource{meta: meta, script: script}
}

func (s *SyntheticSource) BeginAcquisition(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.script == nil {
		return services.Wrap(services.ErrDriver, "camera", "begin", "synthetic source has no frame script", nil)
	}
	s.begun = true
	return nil
}

func (s *SyntheticSource) NextFrame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.begun {
		return nil, services.Wrap(services.ErrDriver, "camera", "next_frame", "acquisition not started", nil)
	}
	s.seq++
	return s.script(s.seq)
}

func (s *SyntheticSource) EndAcquisition() error {
	s.begun = false
	return nil
}

func (s *SyntheticSource) Metadata() Metadata {
	return s.meta
}

// EncodePixels renders a w x h raster in the given packed format, sampling
// the RGB color of each pixel from at.
func EncodePixels(width, height int, format PixelFormat, at func(x, y int) [3]uint8) []byte {
	switch format {
	case FormatRGB8, FormatBGR8:
		data := make([]byte, width*height*3)
		i := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rgb := at(x, y)
				if format == FormatBGR8 {
					data[i], data[i+1], data[i+2] = rgb[2], rgb[1], rgb[0]
				} else {
					data[i], data[i+1], data[i+2] = rgb[0], rgb[1], rgb[2]
				}
				i += 3
			}
		}
		return data
	case FormatMono8:
		data := make([]byte, width*height)
		i := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rgb := at(x, y)
				luma, _, _ := color.RGBToYCbCr(rgb[0], rgb[1], rgb[2])
				data[i] = luma
				i++
			}
		}
		return data
	case FormatYUYV:
		// Chroma is shared per 2-pixel macropixel. Pixels are packed as one
		// linear stream; a trailing odd pixel duplicates its own chroma.
		total := width * height
		data := make([]byte, 0, ((total+1)/2)*4)
		for pixel := 0; pixel < total; pixel += 2 {
			first := at(pixel%width, pixel/width)
			second := first
			if pixel+1 < total {
				second = at((pixel+1)%width, (pixel+1)/width)
			}
			y0, u0, v0 := color.RGBToYCbCr(first[0], first[1], first[2])
			y1, u1, v1 := color.RGBToYCbCr(second[0], second[1], second[2])
			u := uint8((int(u0) + int(u1)) / 2)
			v := uint8((int(v0) + int(v1)) / 2)
			data = append(data, y0, u, y1, v)
		}
		return data
	default:
		return nil
	}
}

// UniformFrame builds a frame filled with a single color.
func UniformFrame(width, height int, format PixelFormat, rgb [3]uint8, seq int64) *Frame {
	data := EncodePixels(width, height, format, func(int, int) [3]uint8 { return rgb })
	return NewFrame(width, height, format, data, seq, nil)
}

// RegionFrame builds a frame of base color with one rectangle filled in
// region color.
func RegionFrame(width, height int, format PixelFormat, base, region [3]uint8, rect image.Rectangle, seq int64) *Frame {
	data := EncodePixels(width, height, format, func(x, y int) [3]uint8 {
		if image.Pt(x, y).In(rect) {
			return region
		}
		return base
	})
	return NewFrame(width, height, format, data, seq, nil)
}

// NewDemoSource returns a synthetic source that walks a block of the target
// color through the top and bottom grid rows, with an incomplete readout
// injected every seventh frame. It backs the --synthetic run mode.
func NewDemoSource(width, height int, target [3]uint8) *SyntheticSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	meta := Metadata{
		DeviceID:    "synthetic",
		Description: "Synthetic Demo Source",
		Width:       width,
		Height:      height,
	}
	eligible := []int{0, 1, 2, 6, 7, 8}
	base := [3]uint8{32, 32, 32}
	cw, ch := width/3, height/3
	script := func(seq int64) (*Frame, error) {
		if seq%7 == 0 {
			return nil, fmt.Errorf("%w: status 64", ErrIncompleteFrame)
		}
		cell := eligible[int(seq)%len(eligible)]
		row, col := cell/3, cell%3
		block := image.Rect(
			col*cw+cw/4,
			row*ch+ch/4,
			col*cw+3*cw/4,
			row*ch+3*ch/4,
		)
		return RegionFrame(width, height, FormatRGB8, base, target, block, seq), nil
	}
	return NewSyntheticSource(meta, script)
}
