package detections_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/delsi82/color-recognition/internal/detections"
)

func openStore(t *testing.T) *detections.Store {
	t.Helper()
	store, err := detections.Open(filepath.Join(t.TempDir(), "detections.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestStoreRecordsSessionLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "run-1234", "/dev/video0")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if session.ID == 0 {
		t.Fatal("session id must be assigned")
	}
	if session.StartedAt.IsZero() {
		t.Fatal("session start time must be set")
	}

	if err := store.EndSession(ctx, session.ID, 42, 3); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	sessions, dets, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if sessions != 1 || dets != 0 {
		t.Fatalf("Totals = (%d, %d), want (1, 0)", sessions, dets)
	}
}

func TestStoreRecordsAndListsDetections(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "run-1", "cam-a")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	first := &detections.Detection{
		SessionID:     session.ID,
		FrameCounter:  1,
		FrameName:     "capture-cam-a-1",
		CellIndex:     0,
		MatchedPixels: 17,
		FilePath:      "/out/capture-cam-a-1 _ Frame _ 0.png",
	}
	if err := store.RecordDetection(ctx, first); err != nil {
		t.Fatalf("RecordDetection: %v", err)
	}
	if first.ID == 0 || first.CreatedAt.IsZero() {
		t.Fatal("RecordDetection must fill ID and CreatedAt")
	}

	second := &detections.Detection{
		SessionID:     session.ID,
		FrameCounter:  2,
		FrameName:     "capture-cam-a-2",
		CellIndex:     7,
		MatchedPixels: 5,
		FilePath:      "/out/capture-cam-a-2 _ Frame _ 7.png",
	}
	if err := store.RecordDetection(ctx, second); err != nil {
		t.Fatalf("RecordDetection: %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent returned %d rows, want 2", len(recent))
	}
	if recent[0].FrameName != "capture-cam-a-2" {
		t.Fatalf("newest detection = %q, want capture-cam-a-2", recent[0].FrameName)
	}
	if recent[0].Device != "cam-a" || recent[0].SessionUUID != "run-1" {
		t.Fatalf("joined session fields = (%q, %q), want (cam-a, run-1)", recent[0].Device, recent[0].SessionUUID)
	}
	if recent[1].CellIndex != 0 || recent[1].MatchedPixels != 17 {
		t.Fatalf("older detection fields = (%d, %d), want (0, 17)", recent[1].CellIndex, recent[1].MatchedPixels)
	}
}

func TestStoreRecentHonorsLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "run-2", "cam-b")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	for i := 0; i < 5; i++ {
		d := &detections.Detection{
			SessionID:    session.ID,
			FrameCounter: int64(i + 1),
			FrameName:    "f",
			FilePath:     "/out/f.png",
		}
		if err := store.RecordDetection(ctx, d); err != nil {
			t.Fatalf("RecordDetection %d: %v", i, err)
		}
	}

	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent returned %d rows, want 3", len(recent))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.db")

	store, err := detections.Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := detections.Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if err := again.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
