package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := exclusionSet(targets)

	for _, target := range targets {
		for _, entry := range matchEntries(target) {
			if _, skip := exclusions[entry.path]; skip {
				continue
			}
			if !entry.modTime.Before(cutoff) {
				continue
			}
			removeLog(logger, entry.path)
		}
	}
}

// CleanupExcessLogs keeps at most keep of the newest files per target and
// removes the remainder. A keep value of 0 disables pruning.
func CleanupExcessLogs(logger *slog.Logger, keep int, targets ...RetentionTarget) {
	if keep <= 0 {
		return
	}

	exclusions := exclusionSet(targets)

	for _, target := range targets {
		entries := matchEntries(target)
		retained := entries[:0]
		for _, entry := range entries {
			if _, skip := exclusions[entry.path]; skip {
				continue
			}
			retained = append(retained, entry)
		}
		if len(retained) <= keep {
			continue
		}
		sort.Slice(retained, func(i, j int) bool {
			return retained[i].modTime.After(retained[j].modTime)
		})
		for _, entry := range retained[keep:] {
			removeLog(logger, entry.path)
		}
	}
}

type logEntry struct {
	path    string
	modTime time.Time
}

func exclusionSet(targets []RetentionTarget) map[string]struct{} {
	exclusions := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				if abs, err := filepath.Abs(trimmed); err == nil {
					exclusions[abs] = struct{}{}
				}
			}
		}
	}
	return exclusions
}

func matchEntries(target RetentionTarget) []logEntry {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	matched := make([]logEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if pat := strings.TrimSpace(target.Pattern); pat != "" {
			ok, err := filepath.Match(pat, name)
			if err != nil || !ok {
				continue
			}
		}
		fullPath := filepath.Join(dir, name)
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		matched = append(matched, logEntry{path: fullPath, modTime: info.ModTime()})
	}
	return matched
}

func removeLog(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
			String("path", path),
			Error(err),
			String(FieldErrorHint, "check file permissions and log directory ownership"),
			String(FieldImpact, "old log file remains on disk"),
		)
		return
	}
	if logger != nil {
		logger.Info("log pruned",
			String("path", path),
			String(FieldEventType, "log_pruned"),
		)
	}
}
