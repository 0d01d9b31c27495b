package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/delsi82/color-recognition/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Directories exist on return; defaults match config.Default otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "captures")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Detections.DatabasePath = filepath.Join(base, "state", "detections.db")
	cfg.Daemon.SocketPath = filepath.Join(base, "state", "colorrec.sock")
	cfg.Daemon.PIDPath = filepath.Join(base, "state", "colorrec.pid")
	cfg.Daemon.LockPath = filepath.Join(base, "state", "colorrec.lock")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure config directories: %v", err)
	}
	return &cfg
}

// WithColorBounds overrides the parsed target color range.
func WithColorBounds(lower, upper [3]uint8) ConfigOption {
	return func(cfg *config.Config) {
		cfg.SetColorBounds(lower, upper)
	}
}

// WithOutputFormat overrides the persisted image encoding.
func WithOutputFormat(format string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Output.Format = format
	}
}

// WithDeviceLabel sets the operator-assigned device label used in filenames.
func WithDeviceLabel(label string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Camera.DeviceID = label
	}
}

// WithMaxFrames bounds the number of frames a session processes.
func WithMaxFrames(n int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Triage.MaxFrames = n
	}
}

// WithFullFrames toggles whole-frame saves alongside matched cells.
func WithFullFrames(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Output.SaveFullFrames = enabled
	}
}
