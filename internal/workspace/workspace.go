// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace allocates the per-document scratch directory that holds
// page images and OCR fragments, and tears it down on every exit path.
package workspace

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 8

// Workspace is a uniquely named directory owned by one document run.
type Workspace struct {
	// Dir is the absolute path of the workspace directory.
	Dir string
	// Base is the base name of the document being processed.
	Base string

	keep   bool
	remove func(string) error
	log    *slog.Logger
}

// Options control where workspaces are created and how they are removed.
type Options struct {
	// Root is the parent directory of the workspace.
	Root string
	// Epoch is the batch start time embedded in the name.
	Epoch time.Time
	// Keep retains the workspace and its contents on Close.
	Keep bool
	// Logger receives cleanup notices. Nil means slog.Default().
	Logger *slog.Logger

	// remove deletes one filesystem entry; tests substitute it.
	remove func(string) error
}

// Name builds the directory name "<epoch>_<base>_<random>". The random
// suffix keeps two runs started within the same second apart.
func Name(epoch time.Time, base string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return fmt.Sprintf("%d_%s_%s", epoch.Unix(), base, id)
}

// Open creates a fresh workspace for the document with the given base name.
func Open(base string, opts Options) (*Workspace, error) {
	if opts.Epoch.IsZero() {
		opts.Epoch = time.Now()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.remove == nil {
		opts.remove = os.Remove
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %s: %w", opts.Root, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace root %s: %w", root, err)
	}

	dir := filepath.Join(root, Name(opts.Epoch, base))
	// Mkdir, not MkdirAll: an existing directory means a collision.
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", dir, err)
	}

	return &Workspace{
		Dir:    dir,
		Base:   base,
		keep:   opts.Keep,
		remove: opts.remove,
		log:    opts.Logger.With("workspace", filepath.Base(dir)),
	}, nil
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// CleanupFailure records one entry that could not be removed.
type CleanupFailure struct {
	Path string
	Err  error
}

// CleanupReport summarizes a teardown. Failures are recorded, never raised.
type CleanupReport struct {
	Kept       bool
	Removed    int
	Failures   []CleanupFailure
	DirRemoved bool
}

// OK reports whether the workspace is fully gone (or was kept on purpose).
func (r CleanupReport) OK() bool {
	return r.Kept || (len(r.Failures) == 0 && r.DirRemoved)
}

// Close removes the workspace and everything in it unless it is kept. Every
// entry is attempted independently; a stuck file does not stop the sweep of
// the rest, and the directory itself is removed last.
func (w *Workspace) Close() CleanupReport {
	if w.keep {
		w.log.Info("keeping workspace", "dir", w.Dir)
		return CleanupReport{Kept: true}
	}

	var report CleanupReport
	var dirs []string
	walkErr := filepath.WalkDir(w.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != w.Dir {
				report.Failures = append(report.Failures, CleanupFailure{Path: path, Err: err})
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != w.Dir {
				dirs = append(dirs, path)
			}
			return nil
		}
		if err := w.remove(path); err != nil {
			report.Failures = append(report.Failures, CleanupFailure{Path: path, Err: err})
			w.log.Warn("failed to remove workspace file", "file", filepath.Base(path), "error", err)
			return nil
		}
		report.Removed++
		return nil
	})
	if walkErr != nil {
		report.Failures = append(report.Failures, CleanupFailure{Path: w.Dir, Err: walkErr})
	}

	// Deepest directories first.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := w.remove(dirs[i]); err != nil {
			report.Failures = append(report.Failures, CleanupFailure{Path: dirs[i], Err: err})
			w.log.Warn("failed to remove workspace subdirectory", "dir", dirs[i], "error", err)
			continue
		}
		report.Removed++
	}

	switch err := w.remove(w.Dir); {
	case err == nil, os.IsNotExist(err):
		report.DirRemoved = true
	default:
		report.Failures = append(report.Failures, CleanupFailure{Path: w.Dir, Err: err})
		w.log.Warn("failed to remove workspace directory", "dir", w.Dir, "error", err)
	}
	return report
}
