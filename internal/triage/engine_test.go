package triage_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/detections"
	"github.com/delsi82/color-recognition/internal/gallery"
	"github.com/delsi82/color-recognition/internal/logging"
	"github.com/delsi82/color-recognition/internal/services"
	"github.com/delsi82/color-recognition/internal/testsupport"
	"github.com/delsi82/color-recognition/internal/triage"
)

var (
	engineLower = [3]uint8{200, 0, 0}
	engineUpper = [3]uint8{255, 60, 60}
	baseGray    = [3]uint8{10, 10, 10}
	targetRed   = [3]uint8{230, 30, 30}
)

// regionInCell returns a 30x30 rectangle wholly inside the given cell of a
// 300x300 frame.
func regionInCell(index int) image.Rectangle {
	cell := triage.CellRect(index, 300, 300)
	return image.Rect(cell.Min.X+10, cell.Min.Y+10, cell.Min.X+40, cell.Min.Y+40)
}

func matchingFrame(cellIndex int, seq int64) *camera.Frame {
	return camera.RegionFrame(300, 300, camera.FormatRGB8, baseGray, targetRed, regionInCell(cellIndex), seq)
}

type countingNotifier struct {
	mu             sync.Mutex
	sessionStarts  int
	sessionEnds    int
	firstDetection int
	errorEvents    int
}

func (n *countingNotifier) NotifySessionStarted(context.Context, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessionStarts++
	return nil
}

func (n *countingNotifier) NotifySessionEnded(context.Context, string, int64, int64, time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessionEnds++
	return nil
}

func (n *countingNotifier) NotifyFirstDetection(context.Context, string, int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.firstDetection++
	return nil
}

func (n *countingNotifier) NotifyError(context.Context, error, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errorEvents++
	return nil
}

func (n *countingNotifier) TestNotification(context.Context) error { return nil }

type engineFixture struct {
	cfg      *config.Config
	store    *detections.Store
	notifier *countingNotifier
	engine   *triage.Engine
}

func newEngineFixture(t *testing.T, script camera.FrameScript, opts ...testsupport.ConfigOption) *engineFixture {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithColorBounds(engineLower, engineUpper)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	writer, err := gallery.NewWriter(cfg.Paths.OutputDir, cfg.OutputExtension())
	if err != nil {
		t.Fatalf("gallery.NewWriter: %v", err)
	}
	persister := gallery.NewPersister(writer, logging.NewNop(), 4)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &countingNotifier{}

	meta := camera.Metadata{DeviceID: "synthetic", Description: "Test Source", Width: 300, Height: 300}
	source := camera.NewSyntheticSource(meta, script)

	return &engineFixture{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		engine:   triage.NewEngine(cfg, source, persister, store, notifier, logging.NewNop()),
	}
}

func (f *engineFixture) outputFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestEngineRunPersistsMatchedCell(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) { return matchingFrame(0, seq), nil },
		testsupport.WithMaxFrames(1),
	)

	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	files := fix.outputFiles(t)
	if len(files) != 1 || files[0] != "capture--1 _ Frame _ 0.png" {
		t.Fatalf("output files = %v, want [capture--1 _ Frame _ 0.png]", files)
	}

	status := fix.engine.Status()
	if status.FramesProcessed != 1 {
		t.Fatalf("FramesProcessed = %d, want 1", status.FramesProcessed)
	}
	if status.MatchedFrames != 1 || status.CellsMatched != 1 {
		t.Fatalf("match counters = (%d, %d), want (1, 1)", status.MatchedFrames, status.CellsMatched)
	}
	if status.ImagesWritten != 1 || status.ImageFailures != 0 {
		t.Fatalf("write counters = (%d, %d), want (1, 0)", status.ImagesWritten, status.ImageFailures)
	}

	recent, err := fix.store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("indexed detections = %d, want 1", len(recent))
	}
	d := recent[0]
	if d.FrameCounter != 1 || d.CellIndex != 0 || d.FrameName != "capture--1" {
		t.Fatalf("detection = %+v, want counter 1, cell 0, frame capture--1", d)
	}
	if d.MatchedPixels != 900 {
		t.Fatalf("MatchedPixels = %d, want 900", d.MatchedPixels)
	}
	if filepath.Base(d.FilePath) != "capture--1 _ Frame _ 0.png" {
		t.Fatalf("FilePath = %q, want cell file name", d.FilePath)
	}
}

func TestEngineFullyInRangeFramePersistsEveryEligibleCell(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) {
			return camera.UniformFrame(300, 300, camera.FormatRGB8, targetRed, seq), nil
		},
		testsupport.WithMaxFrames(1),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	files := fix.outputFiles(t)
	if len(files) != 6 {
		t.Fatalf("output files = %v, want one per eligible cell", files)
	}
	seen := make(map[string]bool, len(files))
	for _, name := range files {
		if seen[name] {
			t.Fatalf("duplicate output file name %q", name)
		}
		seen[name] = true
	}
	for _, index := range []int{0, 1, 2, 6, 7, 8} {
		want := fmt.Sprintf("capture--1 _ Frame _ %d.png", index)
		if !seen[want] {
			t.Fatalf("missing cell file %q in %v", want, files)
		}
	}

	status := fix.engine.Status()
	if status.MatchedFrames != 1 || status.CellsMatched != 6 {
		t.Fatalf("match counters = (%d, %d), want (1, 6)", status.MatchedFrames, status.CellsMatched)
	}
	if status.ImagesWritten != 6 || status.ImageFailures != 0 {
		t.Fatalf("write counters = (%d, %d), want (6, 0)", status.ImagesWritten, status.ImageFailures)
	}
}

func TestEnginePersistedCellStillMatchesAfterDecode(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) { return matchingFrame(8, seq), nil },
		testsupport.WithMaxFrames(1),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := filepath.Join(fix.cfg.Paths.OutputDir, "capture--1 _ Frame _ 8.png")
	decoded, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open persisted cell: %v", err)
	}
	cell := imaging.Clone(decoded)
	rng := triage.ColorRange{Lower: engineLower, Upper: engineUpper}
	if got := triage.ScanCell(cell, cell.Bounds(), rng); got != 900 {
		t.Fatalf("re-scan of persisted cell = %d matched pixels, want 900", got)
	}
}

func TestEngineIgnoresMiddleRowMatches(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) { return matchingFrame(4, seq), nil },
		testsupport.WithMaxFrames(1),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if files := fix.outputFiles(t); len(files) != 0 {
		t.Fatalf("output files = %v, want none", files)
	}
	status := fix.engine.Status()
	if status.FramesProcessed != 1 || status.MatchedFrames != 0 {
		t.Fatalf("counters = (%d, %d), want (1, 0)", status.FramesProcessed, status.MatchedFrames)
	}
}

func TestEngineSkipsIncompleteFramesWithoutAdvancingCounter(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) {
			if seq == 1 {
				return nil, fmt.Errorf("%w: status 7", camera.ErrIncompleteFrame)
			}
			return matchingFrame(0, seq), nil
		},
		testsupport.WithMaxFrames(1),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	status := fix.engine.Status()
	if status.IncompleteFrames != 1 {
		t.Fatalf("IncompleteFrames = %d, want 1", status.IncompleteFrames)
	}
	if status.FramesProcessed != 1 {
		t.Fatalf("FramesProcessed = %d, want 1", status.FramesProcessed)
	}

	// The incomplete readout must not consume a frame number.
	recent, err := fix.store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].FrameCounter != 1 {
		t.Fatalf("recent = %+v, want one detection with counter 1", recent)
	}
}

func TestEngineRetriesTransientFailures(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) {
			if seq <= 2 {
				return nil, services.Wrap(services.ErrTransient, "camera", "next_frame", "scripted stall", nil)
			}
			return matchingFrame(2, seq), nil
		},
		testsupport.WithMaxFrames(1),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	status := fix.engine.Status()
	if status.TransientFailures != 2 {
		t.Fatalf("TransientFailures = %d, want 2", status.TransientFailures)
	}
	if status.FramesProcessed != 1 || status.MatchedFrames != 1 {
		t.Fatalf("counters = (%d, %d), want (1, 1)", status.FramesProcessed, status.MatchedFrames)
	}
}

func TestEngineStopsOnFatalSourceFailure(t *testing.T) {
	fix := newEngineFixture(t, func(seq int64) (*camera.Frame, error) {
		return nil, services.Wrap(services.ErrDriver, "camera", "next_frame", "device wedged", nil)
	})

	err := fix.engine.Run(context.Background())
	if err == nil {
		t.Fatal("Run must fail on a fatal source error")
	}
	if !errors.Is(err, services.ErrDriver) {
		t.Fatalf("Run error = %v, want driver class", err)
	}
	if fix.notifier.errorEvents != 1 {
		t.Fatalf("error notifications = %d, want 1", fix.notifier.errorEvents)
	}
}

func TestEngineStopsCleanlyOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fix := newEngineFixture(t, func(seq int64) (*camera.Frame, error) {
		if seq == 3 {
			cancel()
		}
		return camera.UniformFrame(30, 30, camera.FormatRGB8, baseGray, seq), nil
	})

	if err := fix.engine.Run(ctx); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}
	if got := fix.engine.Status().FramesProcessed; got != 3 {
		t.Fatalf("FramesProcessed = %d, want 3", got)
	}
}

func TestEngineSavesFullFramesWhenEnabled(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) { return matchingFrame(2, seq), nil },
		testsupport.WithMaxFrames(1),
		testsupport.WithFullFrames(true),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	files := fix.outputFiles(t)
	if len(files) != 2 {
		t.Fatalf("output files = %v, want full frame plus cell", files)
	}
	for _, name := range []string{"capture--1.png", "capture--1 _ Frame _ 2.png"} {
		if _, err := os.Stat(filepath.Join(fix.cfg.Paths.OutputDir, name)); err != nil {
			t.Fatalf("expected output file %q: %v", name, err)
		}
	}
}

func TestEngineNotifiesFirstDetectionOnce(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) { return matchingFrame(0, seq), nil },
		testsupport.WithMaxFrames(3),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fix.notifier.firstDetection != 1 {
		t.Fatalf("first detection notifications = %d, want 1", fix.notifier.firstDetection)
	}
	if fix.notifier.sessionStarts != 1 || fix.notifier.sessionEnds != 1 {
		t.Fatalf("session notifications = (%d, %d), want (1, 1)",
			fix.notifier.sessionStarts, fix.notifier.sessionEnds)
	}
	if got := fix.engine.Status().MatchedFrames; got != 3 {
		t.Fatalf("MatchedFrames = %d, want 3", got)
	}
}

func TestEngineUsesDeviceLabelInNames(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) { return matchingFrame(6, seq), nil },
		testsupport.WithMaxFrames(1),
		testsupport.WithDeviceLabel("cam01"),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	files := fix.outputFiles(t)
	if len(files) != 1 || files[0] != "capture-cam01-1 _ Frame _ 6.png" {
		t.Fatalf("output files = %v, want [capture-cam01-1 _ Frame _ 6.png]", files)
	}
}

func TestEngineRecordsSessionInIndex(t *testing.T) {
	fix := newEngineFixture(t,
		func(seq int64) (*camera.Frame, error) { return matchingFrame(1, seq), nil },
		testsupport.WithMaxFrames(2),
	)
	if err := fix.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sessions, dets, err := fix.store.Totals(context.Background())
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if sessions != 1 || dets != 2 {
		t.Fatalf("Totals = (%d, %d), want (1, 2)", sessions, dets)
	}
}
