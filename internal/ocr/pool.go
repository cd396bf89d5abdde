// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr runs the OCR engine over page images with a bounded number of
// concurrent workers. Each page is an independent task: a failure is recorded
// on that page's result and never cancels or delays another page.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/scanocr/internal/fragment"
	"github.com/pdiddy/scanocr/internal/toolchain"
	"github.com/pdiddy/scanocr/pkg/types"
)

// Invoker runs a resolved tool. *toolchain.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, tool toolchain.Tool, args ...string) error
}

// PageResult is the outcome of OCR on one page image. Paths are set only for
// fragments that were written.
type PageResult struct {
	Page  int
	Image string

	PDFPath  string
	TextPath string
	PDFErr   error
	TextErr  error

	Duration time.Duration
}

// Failed reports whether any requested invocation failed for the page.
func (r PageResult) Failed() bool {
	return r.PDFErr != nil || r.TextErr != nil
}

// Wrote reports whether at least one fragment was written for the page.
func (r PageResult) Wrote() bool {
	return r.PDFPath != "" || r.TextPath != ""
}

// Observer is notified as each page finishes. It is called from worker
// goroutines and must be safe for concurrent use.
type Observer func(PageResult)

// Pool runs OCR tasks with at most Workers in flight.
type Pool struct {
	tool     toolchain.Tool
	invoker  Invoker
	workers  int
	langs    string
	oem      int
	psm      int
	kinds    []types.OutputKind
	observer Observer
	log      *slog.Logger
}

// NewPool returns a pool for the OCR tool using the worker count, languages,
// modes and output kinds of cfg.
func NewPool(tool toolchain.Tool, invoker Invoker, cfg types.PipelineConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		tool:    tool,
		invoker: invoker,
		workers: workers,
		langs:   cfg.LanguageArg(),
		oem:     cfg.EngineMode,
		psm:     cfg.PageSegMode,
		kinds:   append([]types.OutputKind(nil), cfg.Outputs...),
		log:     logger,
	}
}

// OnPage registers an observer for finished pages.
func (p *Pool) OnPage(fn Observer) { p.observer = fn }

// Available reports whether the OCR engine can be run at all.
func (p *Pool) Available() bool { return p.tool.Available() }

// Args returns the engine arguments for one page and output kind. The engine
// appends the kind's extension to stem.
func (p *Pool) Args(image, stem string, kind types.OutputKind) []string {
	return []string{
		image, stem,
		"-l", p.langs,
		"--oem", strconv.Itoa(p.oem),
		"--psm", strconv.Itoa(p.psm),
		string(kind),
	}
}

// Run OCRs every image and returns one result per image in input order. It
// returns an error only when the engine is unavailable, in which case nothing
// is attempted. Run returns once every submitted task has finished.
func (p *Pool) Run(ctx context.Context, images []fragment.Fragment) ([]PageResult, error) {
	if !p.tool.Available() {
		return nil, fmt.Errorf("%s: %w", toolchain.RoleOCR, toolchain.ErrUnavailable)
	}

	results := make([]PageResult, len(images))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			results[i] = p.page(ctx, img)
			if p.observer != nil {
				p.observer(results[i])
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors
	return results, nil
}

func (p *Pool) page(ctx context.Context, img fragment.Fragment) PageResult {
	start := time.Now()
	res := PageResult{Page: img.Page, Image: img.Path}
	stem := strings.TrimSuffix(img.Path, filepath.Ext(img.Path))

	for _, kind := range p.kinds {
		out, err := p.invoke(ctx, img.Path, stem, kind)
		switch kind {
		case types.OutputPDF:
			res.PDFPath, res.PDFErr = out, err
		case types.OutputText:
			res.TextPath, res.TextErr = out, err
		}
		if err != nil {
			p.log.Warn("page OCR failed", "page", img.Page, "kind", kind, "error", err)
		}
	}
	res.Duration = time.Since(start)
	return res
}

func (p *Pool) invoke(ctx context.Context, image, stem string, kind types.OutputKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out := stem + "." + string(kind)
	if err := p.invoker.Invoke(ctx, p.tool, p.Args(image, stem, kind)...); err != nil {
		// A killed or failed run can leave a truncated fragment behind.
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			p.log.Warn("failed to remove partial fragment", "file", filepath.Base(out), "error", rmErr)
		}
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("%s wrote no %s fragment: %w", p.tool.Name(), kind, err)
	}
	return out, nil
}

// Fragments returns the written fragments of kind, in ascending page order.
// Pages whose invocation for kind failed are absent.
func Fragments(results []PageResult, kind types.OutputKind) []fragment.Fragment {
	var out []fragment.Fragment
	for _, r := range results {
		path := r.PDFPath
		if kind == types.OutputText {
			path = r.TextPath
		}
		if path != "" {
			out = append(out, fragment.Fragment{Path: path, Page: r.Page})
		}
	}
	fragment.Sort(out)
	return out
}

// Summary counts page outcomes.
type Summary struct {
	Pages       int
	Written     int
	FailedPages []int
}

// Summarize tallies results. FailedPages is ascending when results are.
func Summarize(results []PageResult) Summary {
	s := Summary{Pages: len(results)}
	for _, r := range results {
		if r.Wrote() {
			s.Written++
		}
		if r.Failed() {
			s.FailedPages = append(s.FailedPages, r.Page)
		}
	}
	return s
}
