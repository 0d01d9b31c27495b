package triage_test

import (
	"testing"

	"github.com/delsi82/color-recognition/internal/triage"
)

func TestFrameNameLeavesEmptyDeviceSegment(t *testing.T) {
	if got, want := triage.FrameName("capture", "", 12), "capture--12"; got != want {
		t.Fatalf("FrameName = %q, want %q", got, want)
	}
}

func TestFrameFileNameIncludesExtension(t *testing.T) {
	if got, want := triage.FrameFileName("capture", "cam01", 3, "png"), "capture-cam01-3.png"; got != want {
		t.Fatalf("FrameFileName = %q, want %q", got, want)
	}
}

func TestCellFileNameUsesSpacedSeparator(t *testing.T) {
	got := triage.CellFileName("capture-cam01-3", 7, "png")
	want := "capture-cam01-3 _ Frame _ 7.png"
	if got != want {
		t.Fatalf("CellFileName = %q, want %q", got, want)
	}
}

func TestFrameNameSanitizesSegments(t *testing.T) {
	if got, want := triage.FrameName("a/b", "c:d", 5), "a-b-c-d-5"; got != want {
		t.Fatalf("FrameName = %q, want %q", got, want)
	}
}

func TestCellFileNamesAreDistinctPerCell(t *testing.T) {
	seen := make(map[string]bool)
	frame := triage.FrameName("capture", "", 1)
	for _, index := range []int{0, 1, 2, 6, 7, 8} {
		name := triage.CellFileName(frame, index, "png")
		if seen[name] {
			t.Fatalf("duplicate cell file name %q", name)
		}
		seen[name] = true
	}
	if len(seen) != 6 {
		t.Fatalf("generated %d distinct names, want 6", len(seen))
	}
}
