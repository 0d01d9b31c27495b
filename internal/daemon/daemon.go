package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/detections"
	"github.com/delsi82/color-recognition/internal/logging"
	"github.com/delsi82/color-recognition/internal/notifications"
	"github.com/delsi82/color-recognition/internal/services"
	"github.com/delsi82/color-recognition/internal/triage"
)

// devicePollInterval paces the stat fallback while waiting for a camera to
// reappear. It also acts as the minimum delay between session restarts.
const devicePollInterval = 2 * time.Second

// EngineFactory builds one capture session's engine together with fresh
// persistence plumbing. The daemon calls it once per session so a restarted
// session never inherits a drained persister.
type EngineFactory func() (*triage.Engine, error)

// Daemon supervises capture sessions and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *detections.Store
	factory EngineFactory

	lockPath string
	lock     *flock.Flock

	monitor *cameraMonitor

	running atomic.Bool
	cancel  context.CancelFunc

	mu     sync.Mutex
	engine *triage.Engine
	done   chan struct{}
	runErr error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Session      triage.StatusSummary
	IndexPath    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. The detection store
// may be nil when the index is disabled or unavailable.
func New(cfg *config.Config, factory EngineFactory, store *detections.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || factory == nil || logger == nil {
		return nil, errors.New("daemon requires config, engine factory, and logger")
	}

	lockPath := cfg.Daemon.LockPath
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		factory:  factory,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches session supervision.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "lock", "acquire instance lock", err)
	}
	if !ok {
		return services.Wrap(services.ErrValidation, "daemon", "lock",
			"another colorrec daemon instance is already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	d.cancel = cancel
	d.done = make(chan struct{})
	d.runErr = nil
	done := d.done
	d.mu.Unlock()

	if d.cfg.Daemon.Hotplug {
		d.monitor = newCameraMonitor(d.cfg, d.logger)
		if err := d.monitor.Start(runCtx); err != nil {
			d.logger.Warn("camera monitor failed to start", logging.Error(err))
		}
	}

	go d.supervise(runCtx, done)

	d.running.Store(true)
	d.logger.Info("colorrec daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// supervise runs capture sessions until the context ends, the frame budget
// is reached, or a non-recoverable error stops the run.
func (d *Daemon) supervise(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		engine, err := d.factory()
		if err != nil {
			d.setErr(err)
			logging.ErrorWithContext(d.logger, "failed to build capture session", "session_build_failed",
				logging.Error(err))
			return
		}
		d.setEngine(engine)

		err = engine.Run(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err == nil:
			// Frame budget reached; the session finished its work.
			return
		case d.cfg.Daemon.Hotplug && restartableSession(err):
			logging.WarnWithContext(d.logger, "capture session lost", "session_lost",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "reattach the camera to resume"),
				logging.String(logging.FieldImpact, "no frames are processed until the camera returns"),
			)
			if !d.awaitDevice(ctx) {
				return
			}
		default:
			d.setErr(err)
			return
		}
	}
}

// restartableSession reports whether a session error clears once the camera
// is reattached.
func restartableSession(err error) bool {
	return errors.Is(err, services.ErrNoDevice) || errors.Is(err, services.ErrDriver)
}

// awaitDevice blocks until the camera is available again or the context
// ends. The first poll happens a full interval in, so failed sessions never
// restart in a tight loop.
func (d *Daemon) awaitDevice(ctx context.Context) bool {
	node := camera.NodeForSelector(d.cfg.Camera.Device)

	ticker := time.NewTicker(devicePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case attached := <-d.monitor.Added():
			d.logger.Info("camera reattached",
				logging.String(logging.FieldEventType, "camera_reattached"),
				logging.String("node", attached),
			)
			return true
		case <-ticker.C:
			if node == "" {
				continue
			}
			if _, err := os.Stat(node); err == nil {
				d.logger.Info("camera node present",
					logging.String(logging.FieldEventType, "camera_reattached"),
					logging.String("node", node),
				)
				return true
			}
		}
	}
}

// Stop ends the active session and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	done := d.done
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.monitor.Stop()

	if done != nil {
		<-done
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("colorrec daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Wait blocks until session supervision ends and returns its terminal error.
// A budget-complete or cancelled run returns nil.
func (d *Daemon) Wait(ctx context.Context) error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
	}
	if d.store != nil {
		status.IndexPath = d.store.Path()
	}
	d.mu.Lock()
	engine := d.engine
	d.mu.Unlock()
	if engine != nil {
		status.Session = engine.Status()
	} else {
		status.Session = triage.StatusSummary{State: triage.StateStopped}
	}
	return status
}

// RecentDetections returns the newest indexed detections.
func (d *Daemon) RecentDetections(ctx context.Context, limit int) ([]detections.Detection, error) {
	if d.store == nil {
		return nil, errors.New("detection index unavailable")
	}
	return d.store.Recent(ctx, limit)
}

// DetectionTotals returns lifetime session and detection counts.
func (d *Daemon) DetectionTotals(ctx context.Context) (sessions, total int64, err error) {
	if d.store == nil {
		return 0, 0, errors.New("detection index unavailable")
	}
	return d.store.Totals(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) setEngine(engine *triage.Engine) {
	d.mu.Lock()
	d.engine = engine
	d.mu.Unlock()
}

func (d *Daemon) setErr(err error) {
	d.mu.Lock()
	d.runErr = err
	d.mu.Unlock()
}
