package triage

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/detections"
	"github.com/delsi82/color-recognition/internal/gallery"
	"github.com/delsi82/color-recognition/internal/logging"
	"github.com/delsi82/color-recognition/internal/services"
)

const drainTimeout = 30 * time.Second

// Run executes one acquisition session: acquire, validate, convert, scan,
// persist, release, repeat. It blocks until the context is cancelled, the
// configured frame budget is exhausted, or the source fails fatally.
// Cancellation is a clean shutdown and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return services.Wrap(services.ErrValidation, "triage", "run", "engine already running", nil)
	}
	e.running = true
	e.sessionID = uuid.NewString()
	e.startedAt = time.Now()
	e.frameCounter, e.incomplete, e.transient = 0, 0, 0
	e.matchedFrames, e.cellsMatched = 0, 0
	e.lastError = nil
	e.sessionRow = 0
	sessionID := e.sessionID
	startedAt := e.startedAt
	e.mu.Unlock()
	defer e.finish()

	ctx = services.WithSessionID(ctx, sessionID)
	logger := logging.WithContext(ctx, e.logger)

	if err := e.source.BeginAcquisition(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		e.setLastError(err)
		logging.ErrorWithContext(logger, "acquisition could not start", "session_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check device presence and permissions"),
		)
		e.notifyError(ctx, logger, err, "acquisition start")
		return err
	}

	meta := e.source.Metadata()
	e.mu.Lock()
	e.deviceLabel = meta.DeviceID
	e.mu.Unlock()

	ctx = services.WithDevice(ctx, meta.DeviceID)
	logger = logging.WithContext(ctx, e.logger)

	logger.Info("acquisition session started",
		logging.String(logging.FieldEventType, "session_start"),
		logging.String("description", meta.Description),
		logging.String("frame_width", camera.DimensionLabel(meta.Width)),
		logging.String("frame_height", camera.DimensionLabel(meta.Height)),
		logging.Any("color_lower", e.colorRange.Lower),
		logging.Any("color_upper", e.colorRange.Upper),
	)

	if e.store != nil {
		if session, err := e.store.BeginSession(ctx, sessionID, meta.DeviceID); err != nil {
			logging.WarnWithContext(logger, "detection index unavailable for this session", "detections_store_failed",
				logging.Error(err))
		} else {
			e.mu.Lock()
			e.sessionRow = session.ID
			e.mu.Unlock()
		}
	}
	if err := e.notifier.NotifySessionStarted(ctx, meta.DeviceID); err != nil {
		logger.Warn("session start notification failed", logging.Error(err))
	}

	runErr := e.loop(ctx, logger)

	e.setState(StateReleasing)
	e.shutdown(logger, meta.DeviceID, startedAt)

	if runErr != nil {
		e.setLastError(runErr)
		logging.ErrorWithContext(logger, "acquisition session failed", "session_failed",
			logging.Error(runErr))
		e.notifyError(context.Background(), logger, runErr, "acquisition loop")
		return runErr
	}
	return nil
}

// loop runs the acquisition cycle until cancellation, budget exhaustion, or
// a fatal error, which it returns.
func (e *Engine) loop(ctx context.Context, logger *slog.Logger) error {
	for {
		e.setState(StateAwaitingFrame)
		if ctx.Err() != nil {
			return nil
		}
		if e.maxFrames > 0 && e.processedFrames() >= e.maxFrames {
			logger.Info("frame budget reached",
				logging.String(logging.FieldEventType, "frame_budget_reached"),
				logging.Int64("frames", e.processedFrames()),
			)
			return nil
		}

		frame, err := e.source.NextFrame(ctx)
		e.setState(StateValidating)
		switch {
		case err == nil:
			e.processFrame(ctx, frame)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			frame.Release()
			return nil
		case errors.Is(err, camera.ErrIncompleteFrame):
			e.noteIncomplete()
			frame.Release()
			e.setState(StateReleasing)
			logging.WarnWithContext(logger, "incomplete frame discarded", "incomplete_frame",
				logging.Error(err))
		case !services.IsFatal(err):
			e.noteTransient()
			e.setLastError(err)
			frame.Release()
			e.setState(StateReleasing)
			logging.WarnWithContext(logger, "transient acquisition failure; retrying", "acquisition_retry",
				logging.Error(err))
			e.waitRetry(ctx)
		default:
			frame.Release()
			return err
		}
	}
}

// processFrame carries one valid frame through conversion, scanning, and
// persistence. Every failure here is frame-local: log, release, move on.
func (e *Engine) processFrame(ctx context.Context, frame *camera.Frame) {
	defer func() {
		e.setState(StateReleasing)
		frame.Release()
	}()

	ctx = services.WithFrame(ctx, frame.Seq)
	flog := logging.WithContext(ctx, e.logger)

	e.setState(StateConverting)
	img, convErr := camera.Convert(frame)
	if convErr != nil {
		if img == nil {
			logging.WarnWithContext(flog, "frame conversion failed; frame skipped", "convert_failed",
				logging.Error(convErr),
				logging.String("frame_width", camera.DimensionLabel(frame.Width)),
				logging.String("frame_height", camera.DimensionLabel(frame.Height)),
			)
			return
		}
		logging.WarnWithContext(flog, "frame converted with degradation", "convert_degraded",
			logging.Error(convErr))
	}

	e.setState(StateScanning)
	var matched []CellReport
	for _, rep := range ScanFrame(img, e.colorRange) {
		if rep.Matched() {
			matched = append(matched, rep)
		}
	}

	counter := e.nextFrameCounter()
	if len(matched) == 0 {
		flog.Debug("no cells in range", logging.Int64("frame_counter", counter))
		return
	}

	e.setState(StatePersisting)
	frameName := FrameName(e.prefix, e.deviceID, counter)
	batch := gallery.Batch{FrameName: frameName}
	if e.saveFull {
		batch.FullFrame = &gallery.Cell{
			FileName: frameName + "." + e.ext,
			Image:    gallery.CropCell(img, img.Bounds()),
		}
	}
	for _, rep := range matched {
		batch.Cells = append(batch.Cells, gallery.Cell{
			FileName: CellFileName(frameName, rep.Index, e.ext),
			Image:    gallery.CropCell(img, rep.Bounds),
		})
	}
	e.persister.Submit(batch)

	first := e.noteDetections(len(matched))
	flog.Info("color match persisted",
		logging.String(logging.FieldEventType, "detection"),
		logging.String("frame_name", frameName),
		logging.Int("cells", len(matched)),
	)
	for _, rep := range matched {
		flog.Debug("cell matched",
			logging.Int(logging.FieldCell, rep.Index),
			logging.Int("matched_pixels", rep.MatchedPixels),
		)
	}

	if first {
		if err := e.notifier.NotifyFirstDetection(ctx, frameName, matched[0].Index); err != nil {
			flog.Warn("detection notification failed", logging.Error(err))
		}
	}

	e.recordDetections(ctx, flog, counter, frameName, matched)
}

// recordDetections indexes matched cells. Store failures are absorbed: the
// gallery file is the durable record, the index is a convenience.
func (e *Engine) recordDetections(ctx context.Context, logger *slog.Logger, counter int64, frameName string, matched []CellReport) {
	e.mu.RLock()
	row := e.sessionRow
	e.mu.RUnlock()
	if e.store == nil || row == 0 {
		return
	}

	for _, rep := range matched {
		d := &detections.Detection{
			SessionID:     row,
			FrameCounter:  counter,
			FrameName:     frameName,
			CellIndex:     rep.Index,
			MatchedPixels: rep.MatchedPixels,
			FilePath:      filepath.Join(e.outputDir, CellFileName(frameName, rep.Index, e.ext)),
		}
		if err := e.store.RecordDetection(ctx, d); err != nil {
			logging.WarnWithContext(logger, "detection index write failed", "detections_store_failed",
				logging.Error(err))
			return
		}
	}
}

func (e *Engine) waitRetry(ctx context.Context) {
	if e.retryDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.retryDelay):
	}
}

// shutdown drains outstanding persistence work, closes the source, and
// records the session outcome. It runs on every exit path.
func (e *Engine) shutdown(logger *slog.Logger, device string, startedAt time.Time) {
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := e.persister.Drain(drainCtx); err != nil {
		logger.Warn("persistence drain timed out; queued writes may be lost", logging.Error(err))
	}
	if err := e.source.EndAcquisition(); err != nil {
		logger.Warn("end acquisition failed", logging.Error(err))
	}

	e.mu.RLock()
	frames := e.frameCounter
	incomplete := e.incomplete
	transient := e.transient
	matchedFrames := e.matchedFrames
	cells := e.cellsMatched
	row := e.sessionRow
	e.mu.RUnlock()

	endCtx, endCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer endCancel()
	if e.store != nil && row != 0 {
		if err := e.store.EndSession(endCtx, row, frames, cells); err != nil {
			logger.Warn("detection index session close failed", logging.Error(err))
		}
	}
	if err := e.notifier.NotifySessionEnded(endCtx, device, frames, cells, time.Since(startedAt)); err != nil {
		logger.Warn("session end notification failed", logging.Error(err))
	}

	logger.Info("acquisition session ended",
		logging.String(logging.FieldEventType, "session_end"),
		logging.Int64("frames", frames),
		logging.Int64("incomplete_frames", incomplete),
		logging.Int64("transient_failures", transient),
		logging.Int64("matched_frames", matchedFrames),
		logging.Int64("cells_matched", cells),
		logging.Int64("images_written", e.persister.Written()),
		logging.Int64("image_failures", e.persister.Failed()),
		logging.Duration("session_duration", time.Since(startedAt)),
	)
}

func (e *Engine) notifyError(ctx context.Context, logger *slog.Logger, err error, label string) {
	if nerr := e.notifier.NotifyError(ctx, err, label); nerr != nil {
		logger.Warn("error notification failed", logging.Error(nerr))
	}
}

func (e *Engine) finish() {
	e.mu.Lock()
	e.running = false
	e.state = StateStopped
	e.mu.Unlock()
}
