// Package startup provides utilities for application startup tasks.
package startup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCleanupAge is the minimum age of an orphaned temp file before it is
// removed.
const DefaultCleanupAge = 1 * time.Hour

// tempFileSuffix matches the temp files written during an atomic write. They
// are hidden files named ".<target>.<random>.tmp".
const tempFileSuffix = ".tmp"

// IsOrphanCandidate reports whether name looks like an interrupted atomic
// write.
func IsOrphanCandidate(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempFileSuffix)
}

// CleanupOrphanedTempFiles removes temp files left in dir by atomic writes
// that never completed, such as when the process was killed mid-write.
// Only files older than maxAge are removed so writes in progress are kept.
//
// Returns the number of files removed and any error encountered.
func CleanupOrphanedTempFiles(logger *slog.Logger, dir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("directory does not exist, skipping cleanup",
			"path", dir,
		)
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Error("failed to read directory for cleanup",
			"path", dir,
			"error", err,
		)
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		if entry.IsDir() || !IsOrphanCandidate(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get file info",
				"path", path,
				"error", err,
			)
			continue
		}

		if info.ModTime().After(cutoff) {
			logger.Debug("preserving recent temp file",
				"path", path,
				"age", time.Since(info.ModTime()).Round(time.Second),
			)
			continue
		}

		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove orphaned temp file",
				"path", path,
				"error", err,
			)
			continue
		}

		logger.Info("removed orphaned temp file",
			"path", path,
			"age", time.Since(info.ModTime()).Round(time.Second),
		)
		removed++
	}

	return removed, nil
}
