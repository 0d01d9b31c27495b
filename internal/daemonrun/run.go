// Package daemonrun owns daemon process bootstrap: logging, preflight,
// pid file, detection index, engine wiring, and the IPC socket.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/daemon"
	"github.com/delsi82/color-recognition/internal/detections"
	"github.com/delsi82/color-recognition/internal/gallery"
	"github.com/delsi82/color-recognition/internal/ipc"
	"github.com/delsi82/color-recognition/internal/logging"
	"github.com/delsi82/color-recognition/internal/notifications"
	"github.com/delsi82/color-recognition/internal/preflight"
	"github.com/delsi82/color-recognition/internal/services"
	"github.com/delsi82/color-recognition/internal/triage"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Synthetic swaps the hardware source for a generated one so the full
	// pipeline can run on hosts without a camera.
	Synthetic bool
}

// Run starts the colorrec daemon runtime loop and blocks until the session
// ends or a shutdown signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "bootstrap", "config is required", nil)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("colorrec-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "bootstrap", "init logger", err)
	}

	logConfigSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update colorrec.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "colorrec-*.log", Exclude: []string{logPath}},
	)
	logging.CleanupExcessLogs(logger, cfg.Logging.RetentionFiles,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "colorrec-*.log", Exclude: []string{logPath}},
	)

	// Host must be ready before the camera is opened.
	if err := runPreflight(logger, cfg); err != nil {
		return err
	}

	if err := writePIDFile(cfg.Daemon.PIDPath); err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "bootstrap", "write pid file", err)
	}
	defer os.Remove(cfg.Daemon.PIDPath)

	// The gallery files stay authoritative, so a broken index only costs
	// the query surface.
	var store *detections.Store
	if cfg.Detections.Enabled {
		store, err = detections.Open(cfg.Detections.DatabasePath)
		if err != nil {
			logging.WarnWithContext(logger, "detection index unavailable", "detections_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the database path and its directory permissions"),
				logging.String(logging.FieldImpact, "detections are persisted but not queryable"),
			)
			store = nil
		} else {
			defer store.Close()
		}
	}

	notifier := notifications.NewService(cfg)
	factory := func() (*triage.Engine, error) {
		writer, err := gallery.NewWriter(cfg.Paths.OutputDir, cfg.OutputExtension())
		if err != nil {
			return nil, err
		}
		persister := gallery.NewPersister(writer, logger, 0)
		return triage.NewEngine(cfg, buildSource(cfg, opts), persister, store, notifier, logger), nil
	}

	d, err := daemon.New(cfg, factory, store, logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "bootstrap", "create daemon", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Daemon.SocketPath, d, logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "bootstrap", "start IPC server", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	err = d.Wait(signalCtx)
	if err != nil && signalCtx.Err() == nil {
		logging.ErrorWithContext(logger, "capture session ended with error", "session_failed",
			logging.Error(err))
		return err
	}

	logger.Info("colorrec daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// buildSource selects the acquisition backend. The synthetic source paints
// a matching region into a different eligible cell each frame, so demo runs
// exercise every pipeline stage without hardware.
func buildSource(cfg *config.Config, opts Options) camera.FrameSource {
	if opts.Synthetic {
		lower, upper := cfg.ColorBounds()
		target := [3]uint8{
			uint8((int(lower[0]) + int(upper[0])) / 2),
			uint8((int(lower[1]) + int(upper[1])) / 2),
			uint8((int(lower[2]) + int(upper[2])) / 2),
		}
		return camera.NewDemoSource(0, 0, target)
	}
	return camera.NewGoCVSource(cfg.Camera.Device)
}

// runPreflight logs every check and fails when any requirement is unmet.
func runPreflight(logger *slog.Logger, cfg *config.Config) error {
	results := preflight.RunAll(cfg)
	for _, result := range results {
		logger.Info("preflight check",
			logging.String(logging.FieldEventType, "preflight_check"),
			logging.String("check", result.Name),
			logging.Bool("passed", result.Passed),
			logging.String("detail", result.Detail),
		)
	}
	failed := preflight.Failures(results)
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, f := range failed {
		details = append(details, fmt.Sprintf("%s: %s", f.Name, f.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "daemon", "preflight",
		strings.Join(details, "; "), nil)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "colorrec.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	lower, upper := cfg.ColorBounds()
	logger.Info("capture configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String(logging.FieldDevice, cfg.Camera.Device),
		logging.String("device_label", cfg.Camera.DeviceID),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.String("output_format", cfg.Output.Format),
		logging.Bool("save_full_frames", cfg.Output.SaveFullFrames),
		logging.Any("lower_bound", lower),
		logging.Any("upper_bound", upper),
		logging.Int64("max_frames", cfg.Triage.MaxFrames),
		logging.Bool("hotplug", cfg.Daemon.Hotplug),
		logging.Bool("detections_enabled", cfg.Detections.Enabled),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
