// Package ttsutil provides small filesystem and formatting helpers shared by
// the synthesis pipeline: application cache paths, directory creation, and
// human-readable duration and size formatting.
package ttsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variable honored for cache relocation.
const envCacheDir = "KTTS_CACHE_DIR"

const (
	appName       = "ktts"
	modelsDirName = "models"
	dotCache      = ".cache"
	tmpDir        = "/tmp"

	defaultDirPermissions = 0o750
)

// Data size units.
const (
	kilobyte = 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// CacheDir returns the application's cache directory, honoring the
// KTTS_CACHE_DIR override and falling back to ~/.cache/ktts.
func CacheDir() string {
	if cacheDir := os.Getenv(envCacheDir); cacheDir != "" {
		return cacheDir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(tmpDir, appName)
	}

	return filepath.Join(homeDir, dotCache, appName)
}

// DefaultModelsRoot returns the directory model assets are resolved from when
// the configuration does not name one. A "models" directory next to the
// working directory wins, so a bundled installation stays fully offline;
// otherwise the per-user cache is used.
func DefaultModelsRoot() string {
	local := modelsDirName

	info, statErr := os.Stat(local)
	if statErr == nil && info.IsDir() {
		absPath, absErr := filepath.Abs(local)
		if absErr == nil {
			return absPath
		}
	}

	return filepath.Join(CacheDir(), modelsDirName)
}

// EnsureDir creates a directory (and its parents) if it does not exist yet.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkdirErr)
		}
	}

	return nil
}

// FormatDuration renders a duration as "45.2s", "5m 30.5s" or "1h 15m".
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()

	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}

	if seconds < 3600 {
		minutes := int(seconds / 60)
		remaining := seconds - float64(minutes*60)

		return fmt.Sprintf("%dm %.1fs", minutes, remaining)
	}

	hours := int(seconds / 3600)
	remaining := int(seconds-float64(hours*3600)) / 60

	return fmt.Sprintf("%dh %dm", hours, remaining)
}

// FormatFileSize renders a byte count as "1.2 GB", "500.5 MB" and so on.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf("%.1f MB", float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// SanitizeFilename replaces characters that are invalid in common filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"/", "_",
		"\\", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)

	return replacer.Replace(filename)
}
