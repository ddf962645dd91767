// Package scratch manages the local temp files a workflow run uses as
// transfer source and destination: one fresh directory per run, unique
// file names inside it, and an idempotent best-effort cleanup.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Dir is a per-run scratch directory. It tracks every path it hands
// out so Cleanup can remove them without the caller keeping score.
type Dir struct {
	path  string
	files []string
	log   *slog.Logger
}

// New creates a fresh scratch directory.
func New(log *slog.Logger) (*Dir, error) {
	if log == nil {
		log = slog.Default()
	}

	path, err := os.MkdirTemp("", "blobrun-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &Dir{path: path, log: log}, nil
}

// Path returns the scratch directory path. Empty on a nil receiver.
func (d *Dir) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// CreateSource writes content to a uniquely named file inside the
// scratch directory and returns its path.
func (d *Dir) CreateSource(content string) (string, error) {
	name := fmt.Sprintf("quickstart-%s.txt", uuid.NewString())
	path := filepath.Join(d.path, name)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write source file: %w", err)
	}
	d.files = append(d.files, path)

	return path, nil
}

// DestinationPath derives a sibling path for the downloaded copy by
// inserting a marker before the extension, so source and destination
// coexist for inspection until cleanup.
func DestinationPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + "-download" + ext
}

// Track registers a path created outside CreateSource (the download
// destination) for removal during Cleanup.
func (d *Dir) Track(path string) {
	if d == nil || path == "" {
		return
	}
	d.files = append(d.files, path)
}

// Cleanup removes every tracked file and then the directory itself.
// Paths that no longer exist count as removed, so calling Cleanup
// twice, or after a run that failed before creating anything, is safe.
// Individual failures are logged and collected, never fatal.
func (d *Dir) Cleanup() []error {
	if d == nil || d.path == "" {
		return nil
	}

	var errs []error
	for _, path := range d.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.log.Error("failed to remove scratch file", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}

	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		d.log.Error("failed to remove scratch directory", "path", d.path, "error", err)
		errs = append(errs, fmt.Errorf("remove %s: %w", d.path, err))
	}

	return errs
}
