package preflight

import (
	"path/filepath"
	"strings"

	"github.com/delsi82/color-recognition/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	// Detection index (the database file may not exist yet; its directory must)
	if cfg.Detections.Enabled && cfg.Detections.DatabasePath != "" {
		results = append(results, CheckDirectoryAccess("Detection index directory",
			filepath.Dir(cfg.Detections.DatabasePath)))
	}

	// ntfy endpoint (syntax only; delivery stays best-effort at runtime)
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNotificationEndpoint("Notification endpoint",
			cfg.Notifications.NtfyTopic))
	}

	return results
}

// Failures filters results down to the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
