package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/daemon"
	"github.com/delsi82/color-recognition/internal/detections"
	"github.com/delsi82/color-recognition/internal/gallery"
	"github.com/delsi82/color-recognition/internal/ipc"
	"github.com/delsi82/color-recognition/internal/logging"
	"github.com/delsi82/color-recognition/internal/notifications"
	"github.com/delsi82/color-recognition/internal/testsupport"
	"github.com/delsi82/color-recognition/internal/triage"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *detections.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	cfg.Camera.Device = "synthetic"

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	factory := func() (*triage.Engine, error) {
		writer, err := gallery.NewWriter(cfg.Paths.OutputDir, cfg.OutputExtension())
		if err != nil {
			return nil, err
		}
		persister := gallery.NewPersister(writer, logger, 2)
		meta := camera.Metadata{DeviceID: "synthetic", Description: "Test Source", Width: 60, Height: 60}
		source := camera.NewSyntheticSource(meta, func(seq int64) (*camera.Frame, error) {
			return camera.UniformFrame(60, 60, camera.FormatRGB8, [3]uint8{12, 12, 12}, seq), nil
		})
		return triage.NewEngine(cfg, source, persister, store, notifications.NewService(cfg), logger), nil
	}

	d, err := daemon.New(cfg, factory, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.Daemon.SocketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: cfg.Daemon.SocketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q
state_dir = %q

[camera]
device = %q

[daemon]
socket_path = %q
pid_path = %q
lock_path = %q

[detections]
enabled = %t
database_path = %q
`,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Paths.StateDir,
		cfg.Camera.Device,
		cfg.Daemon.SocketPath,
		cfg.Daemon.PIDPath,
		cfg.Daemon.LockPath,
		cfg.Detections.Enabled,
		cfg.Detections.DatabasePath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
