package triage

import "image"

// ColorRange is a pair of inclusive per-channel RGB bounds. A pixel is
// in range when every channel lies between its lower and upper bound.
type ColorRange struct {
	Lower [3]uint8
	Upper [3]uint8
}

// Contains reports whether an RGB triple falls inside the range,
// bounds inclusive on both ends.
func (r ColorRange) Contains(red, green, blue uint8) bool {
	return red >= r.Lower[0] && red <= r.Upper[0] &&
		green >= r.Lower[1] && green <= r.Upper[1] &&
		blue >= r.Lower[2] && blue <= r.Upper[2]
}

// CellReport is the classification result for a single grid cell.
type CellReport struct {
	Index         int
	Bounds        image.Rectangle
	MatchedPixels int
}

// Matched reports whether the cell holds at least one in-range pixel.
func (c CellReport) Matched() bool {
	return c.MatchedPixels > 0
}

// ScanCell counts the pixels inside bounds that fall within the range.
// Bounds outside the image are clipped; an empty intersection counts zero.
func ScanCell(img *image.NRGBA, bounds image.Rectangle, rng ColorRange) int {
	bounds = bounds.Intersect(img.Bounds())
	count := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		i := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if rng.Contains(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) {
				count++
			}
			i += 4
		}
	}
	return count
}

// ScanFrame classifies every eligible cell of a converted frame and returns
// one report per scanned cell, in index order. Skipped cells produce no
// report but still consume their indices.
func ScanFrame(img *image.NRGBA, rng ColorRange) []CellReport {
	origin := img.Bounds().Min
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	reports := make([]CellReport, 0, GridCells-gridCols)
	for index := 0; index < GridCells; index++ {
		if SkipCell(index) {
			continue
		}
		bounds := CellRect(index, width, height).Add(origin)
		reports = append(reports, CellReport{
			Index:         index,
			Bounds:        bounds,
			MatchedPixels: ScanCell(img, bounds, rng),
		})
	}
	return reports
}
