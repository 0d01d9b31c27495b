package triage

import (
	"fmt"

	"github.com/delsi82/color-recognition/internal/textutil"
)

// FrameName builds the base name for one processed frame:
// <prefix>-<device>-<counter>. An empty device label leaves consecutive
// separators ("capture--12"); consumers rely on the fixed dash positions.
func FrameName(prefix, deviceID string, counter int64) string {
	return fmt.Sprintf("%s-%s-%d",
		textutil.SanitizeFileName(prefix),
		textutil.SanitizeFileName(deviceID),
		counter)
}

// FrameFileName is the full-frame file name for the given encoding extension.
func FrameFileName(prefix, deviceID string, counter int64, ext string) string {
	return FrameName(prefix, deviceID, counter) + "." + ext
}

// CellFileName derives a matched cell's file name from its frame's base
// name. The separator keeps its surrounding spaces; cellIndex is the 0..8
// grid position, so files from one frame never collide.
func CellFileName(frameName string, cellIndex int, ext string) string {
	return fmt.Sprintf("%s _ Frame _ %d.%s", frameName, cellIndex, ext)
}
