package camera

import (
	"fmt"
	"image"
	"image/color"
)

// Convert reformats a raw frame into the fixed analysis layout: 8 bits per
// channel RGB carried in an *image.NRGBA with opaque alpha.
//
// A frame that cannot be interpreted at all (unknown format, unusable
// dimensions, released buffer) returns a nil image and an error. A frame
// whose buffer is shorter than its dimensions promise converts what is
// present, zero-fills the remainder, and returns the partial image together
// with an error describing the degradation; callers log it and continue.
func Convert(f *Frame) (*image.NRGBA, error) {
	if f == nil {
		return nil, fmt.Errorf("convert: nil frame")
	}
	if f.Released() {
		return nil, fmt.Errorf("convert: frame already released")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("convert: unusable dimensions %sx%s",
			DimensionLabel(f.Width), DimensionLabel(f.Height))
	}
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("convert: unsupported pixel format %s", f.Format)
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))

	needed := f.Width * f.Height * bpp
	available := len(f.Data)
	var degraded error
	if available < needed {
		degraded = fmt.Errorf("convert: short buffer: have %d bytes, need %d; remainder zero-filled", available, needed)
	}

	switch f.Format {
	case FormatRGB8:
		convertRGB8(img, f, false)
	case FormatBGR8:
		convertRGB8(img, f, true)
	case FormatMono8:
		convertMono8(img, f)
	case FormatYUYV:
		convertYUYV(img, f)
	}

	return img, degraded
}

func convertRGB8(img *image.NRGBA, f *Frame, swapped bool) {
	limit := len(f.Data) / 3
	for pixel := 0; pixel < f.Width*f.Height && pixel < limit; pixel++ {
		src := pixel * 3
		dst := pixelOffset(img, pixel, f.Width)
		r, g, b := f.Data[src], f.Data[src+1], f.Data[src+2]
		if swapped {
			r, b = b, r
		}
		img.Pix[dst] = r
		img.Pix[dst+1] = g
		img.Pix[dst+2] = b
		img.Pix[dst+3] = 0xFF
	}
	fillAlpha(img)
}

func convertMono8(img *image.NRGBA, f *Frame) {
	limit := len(f.Data)
	for pixel := 0; pixel < f.Width*f.Height && pixel < limit; pixel++ {
		dst := pixelOffset(img, pixel, f.Width)
		v := f.Data[pixel]
		img.Pix[dst] = v
		img.Pix[dst+1] = v
		img.Pix[dst+2] = v
		img.Pix[dst+3] = 0xFF
	}
	fillAlpha(img)
}

func convertYUYV(img *image.NRGBA, f *Frame) {
	total := f.Width * f.Height
	// Each 4-byte macropixel carries two horizontally adjacent pixels.
	groups := len(f.Data) / 4
	for group := 0; group < groups; group++ {
		src := group * 4
		y0, u, y1, v := f.Data[src], f.Data[src+1], f.Data[src+2], f.Data[src+3]

		first := group * 2
		if first >= total {
			break
		}
		r, g, b := color.YCbCrToRGB(y0, u, v)
		dst := pixelOffset(img, first, f.Width)
		img.Pix[dst] = r
		img.Pix[dst+1] = g
		img.Pix[dst+2] = b
		img.Pix[dst+3] = 0xFF

		second := first + 1
		if second >= total {
			break
		}
		r, g, b = color.YCbCrToRGB(y1, u, v)
		dst = pixelOffset(img, second, f.Width)
		img.Pix[dst] = r
		img.Pix[dst+1] = g
		img.Pix[dst+2] = b
		img.Pix[dst+3] = 0xFF
	}
	fillAlpha(img)
}

func pixelOffset(img *image.NRGBA, pixel, width int) int {
	y := pixel / width
	x := pixel % width
	return y*img.Stride + x*4
}

// fillAlpha forces opaque alpha on every pixel, including zero-filled tails
// of short buffers.
func fillAlpha(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
}
