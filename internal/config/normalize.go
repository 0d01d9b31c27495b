package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCamera(); err != nil {
		return err
	}
	if err := c.normalizeTriage(); err != nil {
		return err
	}
	c.normalizeOutput()
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	if err := c.normalizeDetections(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCamera() error {
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	if c.Camera.Device == "" {
		if value, ok := os.LookupEnv("COLORREC_DEVICE"); ok {
			c.Camera.Device = strings.TrimSpace(value)
		}
	}
	if c.Camera.Device == "" {
		c.Camera.Device = defaultCameraDevice
	}
	c.Camera.DeviceID = strings.TrimSpace(c.Camera.DeviceID)
	c.Camera.PixelFormat = strings.ToLower(strings.TrimSpace(c.Camera.PixelFormat))
	if c.Camera.WarmupFrames < 0 {
		c.Camera.WarmupFrames = 0
	}
	return nil
}

func (c *Config) normalizeTriage() error {
	c.Triage.LowerBound = strings.ToLower(strings.TrimSpace(c.Triage.LowerBound))
	c.Triage.UpperBound = strings.ToLower(strings.TrimSpace(c.Triage.UpperBound))
	if c.Triage.LowerBound == "" {
		c.Triage.LowerBound = defaultLowerBound
	}
	if c.Triage.UpperBound == "" {
		c.Triage.UpperBound = defaultUpperBound
	}

	lower, err := parseHexColor(c.Triage.LowerBound)
	if err != nil {
		return fmt.Errorf("triage.lower_bound: %w", err)
	}
	upper, err := parseHexColor(c.Triage.UpperBound)
	if err != nil {
		return fmt.Errorf("triage.upper_bound: %w", err)
	}
	c.lowerBound = lower
	c.upperBound = upper
	return nil
}

func parseHexColor(value string) ([3]uint8, error) {
	if !strings.HasPrefix(value, "#") {
		value = "#" + value
	}
	parsed, err := colorful.Hex(value)
	if err != nil {
		return [3]uint8{}, fmt.Errorf("parse hex color %q: %w", value, err)
	}
	r, g, b := parsed.RGB255()
	return [3]uint8{r, g, b}, nil
}

func (c *Config) normalizeOutput() {
	c.Output.Prefix = strings.TrimSpace(c.Output.Prefix)
	if c.Output.Prefix == "" {
		c.Output.Prefix = defaultOutputPrefix
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	if c.Output.Format == "jpg" {
		c.Output.Format = "jpeg"
	}
}

func (c *Config) normalizeDaemon() error {
	var err error
	if strings.TrimSpace(c.Daemon.SocketPath) == "" {
		c.Daemon.SocketPath = filepath.Join(c.Paths.StateDir, "colorrec.sock")
	}
	if c.Daemon.SocketPath, err = expandPath(c.Daemon.SocketPath); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Daemon.PIDPath) == "" {
		c.Daemon.PIDPath = filepath.Join(c.Paths.StateDir, "colorrec.pid")
	}
	if c.Daemon.PIDPath, err = expandPath(c.Daemon.PIDPath); err != nil {
		return fmt.Errorf("daemon.pid_path: %w", err)
	}
	if strings.TrimSpace(c.Daemon.LockPath) == "" {
		c.Daemon.LockPath = filepath.Join(c.Paths.StateDir, "colorrec.lock")
	}
	if c.Daemon.LockPath, err = expandPath(c.Daemon.LockPath); err != nil {
		return fmt.Errorf("daemon.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDetections() error {
	var err error
	if strings.TrimSpace(c.Detections.DatabasePath) == "" {
		c.Detections.DatabasePath = filepath.Join(c.Paths.StateDir, "detections.db")
	}
	if c.Detections.DatabasePath, err = expandPath(c.Detections.DatabasePath); err != nil {
		return fmt.Errorf("detections.database_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("COLORREC_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.RetentionFiles < 0 {
		c.Logging.RetentionFiles = 0
	}
}
