package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Camera contains configuration for the capture device.
type Camera struct {
	Device       string `toml:"device"`
	DeviceID     string `toml:"device_id"`
	PixelFormat  string `toml:"pixel_format"`
	WarmupFrames int    `toml:"warmup_frames"`
}

// Triage contains configuration for the color classification loop.
type Triage struct {
	LowerBound   string `toml:"lower_bound"`
	UpperBound   string `toml:"upper_bound"`
	RetryDelayMS int    `toml:"retry_delay_ms"`
	MaxFrames    int64  `toml:"max_frames"`
}

// Output contains configuration for persisted image naming and encoding.
type Output struct {
	Prefix         string `toml:"prefix"`
	Format         string `toml:"format"`
	SaveFullFrames bool   `toml:"save_full_frames"`
}

// Detections contains configuration for the detection index database.
type Detections struct {
	Enabled      bool   `toml:"enabled"`
	DatabasePath string `toml:"database_path"`
}

// Daemon contains configuration for daemon process control.
type Daemon struct {
	Hotplug    bool   `toml:"hotplug"`
	SocketPath string `toml:"socket_path"`
	PIDPath    string `toml:"pid_path"`
	LockPath   string `toml:"lock_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SessionStart   bool   `toml:"session_start"`
	SessionEnd     bool   `toml:"session_end"`
	FirstDetection bool   `toml:"first_detection"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string `toml:"format"`
	Level          string `toml:"level"`
	RetentionDays  int    `toml:"retention_days"`
	RetentionFiles int    `toml:"retention_files"`
}

// Config encapsulates all configuration values for colorrec.
//
// Configuration sections by subsystem:
//   - Paths: capture output, log, and state directories
//   - Camera: device selection, operator label, pixel format hint
//   - Triage: target color range, retry pacing, frame budget
//   - Output: filename prefix, encoding format, full-frame saves
//   - Detections: SQLite detection index placement
//   - Daemon: hotplug behaviour and control socket/pid/lock paths
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Camera        Camera        `toml:"camera"`
	Triage        Triage        `toml:"triage"`
	Output        Output        `toml:"output"`
	Detections    Detections    `toml:"detections"`
	Daemon        Daemon        `toml:"daemon"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`

	lowerBound [3]uint8
	upperBound [3]uint8
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/colorrec/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and color bounds parsed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/colorrec/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("colorrec.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ColorBounds returns the parsed inclusive per-channel color range in RGB
// order. Only meaningful after Load or a successful normalize.
func (c *Config) ColorBounds() (lower, upper [3]uint8) {
	return c.lowerBound, c.upperBound
}

// SetColorBounds installs parsed bounds directly, bypassing the hex string
// fields. Intended for programmatic construction in tests and tooling.
func (c *Config) SetColorBounds(lower, upper [3]uint8) {
	c.lowerBound = lower
	c.upperBound = upper
}

// RetryDelay returns the pause inserted after a transient acquisition error.
// Zero preserves the immediate-retry behaviour.
func (c *Config) RetryDelay() time.Duration {
	if c.Triage.RetryDelayMS <= 0 {
		return 0
	}
	return time.Duration(c.Triage.RetryDelayMS) * time.Millisecond
}

// OutputExtension returns the file extension for the configured output
// format, without the leading dot.
func (c *Config) OutputExtension() string {
	return strings.ToLower(strings.TrimSpace(c.Output.Format))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
