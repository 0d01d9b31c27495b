package triage

import "image"

const (
	gridRows = 3
	gridCols = 3

	// GridCells is the number of addressable cells in the scan grid.
	GridCells = gridRows * gridCols
)

// CellSize returns the per-cell dimensions for a frame. Sizes come from
// integer division, so remainder pixels on the right and bottom edges fall
// outside every cell and are never scanned.
func CellSize(width, height int) (cw, ch int) {
	cw = width / gridCols
	ch = height / gridRows
	if cw < 0 {
		cw = 0
	}
	if ch < 0 {
		ch = 0
	}
	return cw, ch
}

// CellRect returns the bounds of one grid cell, origin at (0,0). Cells are
// addressed row-major: index 0 is top-left, 8 bottom-right. Frames narrower
// or shorter than the grid yield empty rectangles.
func CellRect(index, width, height int) image.Rectangle {
	cw, ch := CellSize(width, height)
	row := index / gridCols
	col := index % gridCols
	x0 := col * cw
	y0 := row * ch
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

// SkipCell reports whether a cell index is excluded from scanning. The
// entire middle row is skipped; skipped cells still consume their indices.
func SkipCell(index int) bool {
	return index/gridCols == 1
}
