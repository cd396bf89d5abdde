// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package raster turns a scanned document into one numbered page image per
// page. The primary converter emits canonical names directly; the fallback's
// output is renumbered in place to "<base>-<NNNN>.png".
package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/scanocr/internal/fragment"
	"github.com/pdiddy/scanocr/internal/toolchain"
	"github.com/pdiddy/scanocr/pkg/types"
)

var (
	// ErrNoRasterizer is returned when neither converter is installed.
	ErrNoRasterizer = errors.New("no rasterizer available")
	// ErrNoImages is returned when a converter exits cleanly but writes no pages.
	ErrNoImages = errors.New("rasterizer produced no page images")
)

// Invoker runs a resolved tool. *toolchain.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, tool toolchain.Tool, args ...string) error
}

// Result describes the page images written for one document.
type Result struct {
	// Images are sorted by page number, dense from 1.
	Images []fragment.Fragment
	// UsedFallback is true when the fallback converter produced the images.
	UsedFallback bool
	// PrimaryErr records why the primary converter was not used.
	PrimaryErr error
}

// Rasterizer converts documents with a primary/fallback converter pair.
type Rasterizer struct {
	primary  toolchain.Tool
	fallback toolchain.Tool
	invoker  Invoker
	density  int
	color    types.ColorMode
	log      *slog.Logger
}

// New returns a rasterizer bound to the resolved tools and the density and
// color mode of cfg.
func New(tools toolchain.Tools, invoker Invoker, cfg types.PipelineConfig, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{
		primary:  tools.Rasterizer,
		fallback: tools.RasterizerFallback,
		invoker:  invoker,
		density:  cfg.Density,
		color:    cfg.ColorMode,
		log:      logger,
	}
}

// Rasterize writes the page images of doc into dir. A primary failure falls
// through to the fallback; only a fallback failure, or the absence of both
// converters, is returned as an error.
func (r *Rasterizer) Rasterize(ctx context.Context, doc types.SourceDocument, dir string) (Result, error) {
	if !r.primary.Available() && !r.fallback.Available() {
		return Result{}, ErrNoRasterizer
	}

	var primaryErr error
	if r.primary.Available() {
		images, err := r.runPrimary(ctx, doc, dir)
		if err == nil {
			return Result{Images: images}, nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return Result{PrimaryErr: primaryErr}, primaryErr
		}
		r.log.Warn("primary rasterizer failed, trying fallback", "tool", r.primary.Name(), "error", err)
		if n, err := removeImages(dir, doc.Base); err != nil {
			r.log.Warn("failed to clear partial page images", "error", err)
		} else if n > 0 {
			r.log.Debug("cleared partial page images", "count", n)
		}
	} else {
		primaryErr = fmt.Errorf("%s: %w", toolchain.RoleRasterizer, toolchain.ErrUnavailable)
		r.log.Info("primary rasterizer unavailable, using fallback")
	}

	if !r.fallback.Available() {
		return Result{PrimaryErr: primaryErr}, fmt.Errorf("no fallback rasterizer: %w", primaryErr)
	}

	images, err := r.runFallback(ctx, doc, dir)
	if err != nil {
		return Result{PrimaryErr: primaryErr}, errors.Join(primaryErr, err)
	}
	return Result{Images: images, UsedFallback: true, PrimaryErr: primaryErr}, nil
}

// PrimaryArgs returns the arguments for the primary converter. The "convert"
// subcommand is only passed to the "magick" front end.
func (r *Rasterizer) PrimaryArgs(doc types.SourceDocument, dir string) []string {
	var args []string
	if r.primary.Name() == "magick" {
		args = append(args, "convert")
	}
	args = append(args, "-density", strconv.Itoa(r.density))
	if r.color == types.ColorGray {
		args = append(args, "-colorspace", "Gray")
	}
	args = append(args,
		"-contrast-stretch", "0",
		"-alpha", "remove",
		"-strip",
		doc.Path,
		"-scene", "1",
		filepath.Join(dir, doc.Base+"-%04d"+fragment.ExtImage),
	)
	return args
}

// FallbackArgs returns the arguments for the fallback converter, which
// appends its own "-<n>.png" suffix to the output root.
func (r *Rasterizer) FallbackArgs(doc types.SourceDocument, dir string) []string {
	args := []string{"-r", strconv.Itoa(r.density)}
	if r.color == types.ColorGray {
		args = append(args, "-gray")
	}
	return append(args, "-png", doc.Path, filepath.Join(dir, doc.Base))
}

func (r *Rasterizer) runPrimary(ctx context.Context, doc types.SourceDocument, dir string) ([]fragment.Fragment, error) {
	if err := r.invoker.Invoke(ctx, r.primary, r.PrimaryArgs(doc, dir)...); err != nil {
		return nil, err
	}
	return collect(dir, doc.Base)
}

func (r *Rasterizer) runFallback(ctx context.Context, doc types.SourceDocument, dir string) ([]fragment.Fragment, error) {
	if err := r.invoker.Invoke(ctx, r.fallback, r.FallbackArgs(doc, dir)...); err != nil {
		return nil, err
	}
	n, err := Renumber(dir, doc.Base)
	if err != nil {
		return nil, err
	}
	r.log.Debug("renumbered fallback page images", "count", n)
	return collect(dir, doc.Base)
}

func collect(dir, base string) ([]fragment.Fragment, error) {
	images, err := fragment.Collect(dir, base, fragment.ExtImage)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	return images, nil
}

// Renumber renames "<base>-<n>.png" files in dir to the canonical
// four-digit form and returns how many were renamed.
func Renumber(dir, base string) (int, error) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `-(\d+)\.png$`)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", dir, err)
	}

	renamed := 0
	for _, e := range entries {
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		canonical := fragment.Stem(base, page) + fragment.ExtImage
		if canonical == e.Name() {
			continue
		}
		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(dir, canonical)); err != nil {
			return renamed, fmt.Errorf("renumbering %s: %w", e.Name(), err)
		}
		renamed++
	}
	return renamed, nil
}

// removeImages deletes page images of base left in dir by a failed attempt.
func removeImages(dir, base string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base+"-") || filepath.Ext(name) != fragment.ExtImage {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
