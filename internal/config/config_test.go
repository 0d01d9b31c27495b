package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/delsi82/color-recognition/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndParsesBounds(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "colorrec", "captures")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "colorrec", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Camera.Device != "0" {
		t.Fatalf("unexpected camera device: %q", cfg.Camera.Device)
	}
	if cfg.Output.Prefix != "capture" || cfg.Output.Format != "png" {
		t.Fatalf("unexpected output defaults: %q %q", cfg.Output.Prefix, cfg.Output.Format)
	}
	if !cfg.Detections.Enabled {
		t.Fatal("expected detections enabled by default")
	}
	if cfg.Daemon.Hotplug {
		t.Fatal("expected hotplug disabled by default")
	}

	lower, upper := cfg.ColorBounds()
	if lower == upper {
		t.Fatal("expected distinct default bounds")
	}
	for channel := 0; channel < 3; channel++ {
		if lower[channel] > upper[channel] {
			t.Fatalf("default bounds inverted on channel %d: %d > %d", channel, lower[channel], upper[channel])
		}
	}

	stateDir := filepath.Join(tempHome, ".local", "share", "colorrec")
	if cfg.Daemon.SocketPath != filepath.Join(stateDir, "colorrec.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Daemon.SocketPath)
	}
	if cfg.Daemon.PIDPath != filepath.Join(stateDir, "colorrec.pid") {
		t.Fatalf("unexpected pid path: %q", cfg.Daemon.PIDPath)
	}
	if cfg.Detections.DatabasePath != filepath.Join(stateDir, "detections.db") {
		t.Fatalf("unexpected database path: %q", cfg.Detections.DatabasePath)
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[camera]
device = "/dev/video2"
device_id = "line-3"

[triage]
lower_bound = "#102030"
upper_bound = "#405060"
retry_delay_ms = 250
max_frames = 10

[output]
prefix = "belt"
format = "jpg"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected explicit config to resolve, got %q %v", resolved, exists)
	}

	if cfg.Camera.Device != "/dev/video2" {
		t.Fatalf("unexpected device: %q", cfg.Camera.Device)
	}
	if cfg.Camera.DeviceID != "line-3" {
		t.Fatalf("unexpected device id: %q", cfg.Camera.DeviceID)
	}
	lower, upper := cfg.ColorBounds()
	if lower != [3]uint8{0x10, 0x20, 0x30} {
		t.Fatalf("unexpected lower bound: %v", lower)
	}
	if upper != [3]uint8{0x40, 0x50, 0x60} {
		t.Fatalf("unexpected upper bound: %v", upper)
	}
	if cfg.RetryDelay().Milliseconds() != 250 {
		t.Fatalf("unexpected retry delay: %v", cfg.RetryDelay())
	}
	if cfg.Triage.MaxFrames != 10 {
		t.Fatalf("unexpected max frames: %d", cfg.Triage.MaxFrames)
	}
	if cfg.Output.Prefix != "belt" {
		t.Fatalf("unexpected prefix: %q", cfg.Output.Prefix)
	}
	if cfg.Output.Format != "jpeg" {
		t.Fatalf("expected jpg to normalize to jpeg, got %q", cfg.Output.Format)
	}
	if cfg.OutputExtension() != "jpeg" {
		t.Fatalf("unexpected extension: %q", cfg.OutputExtension())
	}
}

func TestLoadRejectsMalformedColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[triage]
lower_bound = "not-a-color"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for malformed color")
	}
	if !strings.Contains(err.Error(), "triage.lower_bound") {
		t.Fatalf("expected field name in error, got %v", err)
	}
}

func TestLoadRejectsInvertedBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[triage]
lower_bound = "#ffffff"
upper_bound = "#000000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for inverted bounds")
	}
}

func TestLoadRejectsUnknownOutputFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[output]
format = "tiff"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported output format")
	}
}

func TestLoadRejectsUnknownPixelFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[camera]
pixel_format = "nv12"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported pixel format")
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("COLORREC_NTFY_TOPIC", "belt-alerts")
	t.Setenv("COLORREC_DEVICE", "/dev/video5")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[camera]
device = "  "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Camera.Device != "/dev/video5" {
		t.Fatalf("expected device from env, got %q", cfg.Camera.Device)
	}
	if cfg.Notifications.NtfyTopic != "belt-alerts" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSampleLoadsClean(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Output.Format != "png" {
		t.Fatalf("sample should carry defaults, got format %q", cfg.Output.Format)
	}
}

func TestEnsureDirectories(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
