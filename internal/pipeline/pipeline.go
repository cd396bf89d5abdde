// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the OCR reconstruction of one scanned document:
// workspace, rasterization, concurrent OCR, batched PDF merge and page-ordered
// text assembly, with the workspace torn down on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/scanocr/internal/assemble"
	"github.com/pdiddy/scanocr/internal/fragment"
	"github.com/pdiddy/scanocr/internal/merge"
	"github.com/pdiddy/scanocr/internal/metrics"
	"github.com/pdiddy/scanocr/internal/ocr"
	"github.com/pdiddy/scanocr/internal/pagespec"
	"github.com/pdiddy/scanocr/internal/raster"
	"github.com/pdiddy/scanocr/internal/toolchain"
	"github.com/pdiddy/scanocr/internal/workspace"
	"github.com/pdiddy/scanocr/pkg/types"
)

// ErrDocumentFatal marks a failure that stopped one document. Other documents
// in a batch are unaffected.
var ErrDocumentFatal = errors.New("document failed")

// PageCounter reads the page count of a source document.
type PageCounter interface {
	PageCount(path string) (int, error)
}

// Deps are the collaborators of a Pipeline. Tools must already be resolved.
type Deps struct {
	Tools toolchain.Tools
	// Executor runs the tools. Nil means the operating system.
	Executor toolchain.Executor
	// Merger is the merge primitive for the searchable PDF. Required when
	// PDF output is requested.
	Merger merge.Merger
	// Pages, when set, is used to cross-check the rasterized page count.
	Pages   PageCounter
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Epoch is the batch start time embedded in workspace names. Zero means
	// the time New is called.
	Epoch time.Time
}

// Pipeline processes documents one at a time with a fixed configuration and
// tool bindings.
type Pipeline struct {
	cfg     types.PipelineConfig
	tools   toolchain.Tools
	raster  *raster.Rasterizer
	pool    *ocr.Pool
	merger  *merge.Batched
	pages   PageCounter
	metrics *metrics.Metrics
	log     *slog.Logger
	epoch   time.Time
}

// New validates cfg (after filling defaults) and wires the stages.
func New(cfg types.PipelineConfig, deps Deps) (*Pipeline, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Pages != "" {
		// The range itself is checked against each document.
		if err := pagespec.Validate(cfg.Pages); err != nil {
			return nil, fmt.Errorf("invalid pages %q: %w", cfg.Pages, err)
		}
	}
	if cfg.Wants(types.OutputPDF) && deps.Merger == nil {
		return nil, errors.New("pdf output requested without a merger")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	epoch := deps.Epoch
	if epoch.IsZero() {
		epoch = time.Now()
	}
	invoker := toolchain.NewInvoker(deps.Executor, cfg.ToolTimeout)

	p := &Pipeline{
		cfg:     cfg,
		tools:   deps.Tools,
		raster:  raster.New(deps.Tools, invoker, cfg, logger),
		pool:    ocr.NewPool(deps.Tools.OCR, invoker, cfg, logger),
		pages:   deps.Pages,
		metrics: deps.Metrics,
		log:     logger,
		epoch:   epoch,
	}
	if deps.Merger != nil {
		p.merger = merge.NewBatched(deps.Merger, cfg.MergeBatchSize, logger)
	}
	p.pool.OnPage(func(r ocr.PageResult) {
		p.metrics.ObservePage(r.Failed(), r.Duration)
	})
	return p, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() types.PipelineConfig { return p.cfg }

// SearchablePath returns where the searchable PDF for doc is written.
func (p *Pipeline) SearchablePath(doc types.SourceDocument) string {
	return filepath.Join(doc.Dir(), doc.Base+p.cfg.SearchableSuffix+fragment.ExtPDF)
}

// TextPath returns where the text output for doc is written.
func (p *Pipeline) TextPath(doc types.SourceDocument) string {
	return filepath.Join(doc.Dir(), doc.Base+fragment.ExtText)
}

// Run processes the document at path. The returned error is non-nil only for
// a fatal failure and then wraps ErrDocumentFatal; per-page and per-output
// failures are reported in the result.
func (p *Pipeline) Run(ctx context.Context, path string) (types.DocumentResult, error) {
	doc := types.NewSourceDocument(path)
	res := types.DocumentResult{Document: doc, StartedAt: time.Now()}
	log := p.log.With("document", doc.Base)

	err := p.run(ctx, doc, &res, log)
	res.Duration = time.Since(res.StartedAt)
	if err != nil {
		res.Status = types.StatusFailed
		res.Error = err.Error()
		err = fmt.Errorf("%s: %w: %w", doc.Base, ErrDocumentFatal, err)
		log.Error("document failed", "error", res.Error)
	} else {
		log.Info("document finished", "status", res.Status, "pages", res.Pages, "duration", res.Duration.Round(time.Millisecond))
	}
	p.metrics.ObserveDocument(string(res.Status), res.Duration)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, doc types.SourceDocument, res *types.DocumentResult, log *slog.Logger) error {
	if err := checkSource(doc.Path); err != nil {
		return err
	}

	expected := 0
	if p.pages != nil {
		n, err := p.pages.PageCount(doc.Path)
		if err != nil {
			// The rasterizers may still read what the PDF library cannot.
			log.Warn("could not read source page count", "error", err)
			res.Notes = append(res.Notes, "page count unavailable: "+err.Error())
		} else {
			expected = n
		}
	}

	root := p.cfg.WorkspaceRoot
	if root == "" {
		root = doc.Dir()
	}
	ws, err := workspace.Open(doc.Base, workspace.Options{
		Root:   root,
		Epoch:  p.epoch,
		Keep:   p.cfg.KeepIntermediate,
		Logger: log,
	})
	if err != nil {
		return err
	}
	defer func() {
		start := time.Now()
		report := ws.Close()
		p.metrics.ObserveStage(metrics.StageCleanup, time.Since(start))
		p.metrics.CleanupFailures(len(report.Failures))
		if !report.OK() {
			res.Notes = append(res.Notes, fmt.Sprintf("workspace %s not fully removed (%d entries)", ws.Dir, len(report.Failures)))
		}
	}()

	start := time.Now()
	rr, err := p.raster.Rasterize(ctx, doc, ws.Dir)
	p.metrics.ObserveStage(metrics.StageRasterize, time.Since(start))
	if err != nil {
		return fmt.Errorf("rasterizing: %w", err)
	}
	res.Pages = len(rr.Images)
	res.UsedFallback = rr.UsedFallback
	if rr.UsedFallback {
		p.metrics.Fallback()
		res.Notes = append(res.Notes, "rasterized with fallback converter")
	}
	if expected > 0 && expected != res.Pages {
		log.Warn("page count mismatch", "source", expected, "rasterized", res.Pages)
		res.Notes = append(res.Notes, fmt.Sprintf("source has %d pages, rasterized %d", expected, res.Pages))
	}

	images, err := p.selectPages(rr.Images)
	if err != nil {
		return err
	}

	if !p.pool.Available() {
		log.Warn("OCR engine unavailable, skipping OCR")
		res.Status = types.StatusDegraded
		res.Notes = append(res.Notes, "OCR engine unavailable, no outputs produced")
		return nil
	}

	start = time.Now()
	results, err := p.pool.Run(ctx, images)
	p.metrics.ObserveStage(metrics.StageOCR, time.Since(start))
	if err != nil {
		return fmt.Errorf("running OCR: %w", err)
	}
	summary := ocr.Summarize(results)
	res.PagesOCRed = summary.Written
	res.FailedPages = summary.FailedPages
	if len(summary.FailedPages) > 0 {
		log.Warn("OCR failed on some pages", "pages", summary.FailedPages)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var outErrs []error
	if p.cfg.Wants(types.OutputPDF) {
		if err := p.writePDF(ctx, doc, ocr.Fragments(results, types.OutputPDF), res, log); err != nil {
			outErrs = append(outErrs, err)
		}
	}
	if p.cfg.Wants(types.OutputText) {
		if err := p.writeText(doc, ocr.Fragments(results, types.OutputText), res, log); err != nil {
			outErrs = append(outErrs, err)
		}
	}

	produced := len(res.Produced())
	switch {
	case produced == 0:
		return fmt.Errorf("no output produced: %w", errors.Join(outErrs...))
	case len(outErrs) > 0:
		res.Status = types.StatusPartial
		res.Error = outErrs[0].Error()
	default:
		res.Status = types.StatusDone
	}
	return nil
}

func checkSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	return f.Close()
}

// selectPages keeps only the pages named by the configured page spec.
func (p *Pipeline) selectPages(images []fragment.Fragment) ([]fragment.Fragment, error) {
	if p.cfg.Pages == "" {
		return images, nil
	}
	idx, err := pagespec.Parse(p.cfg.Pages, len(images))
	if err != nil {
		return nil, fmt.Errorf("selecting pages %q: %w", p.cfg.Pages, err)
	}
	want := make(map[int]bool, len(idx))
	for _, i := range idx {
		want[i+1] = true
	}
	var out []fragment.Fragment
	for _, img := range images {
		if want[img.Page] {
			out = append(out, img)
		}
	}
	return out, nil
}

// writePDF merges the PDF fragments of the pages that succeeded. frags are in
// page order.
func (p *Pipeline) writePDF(ctx context.Context, doc types.SourceDocument, frags []fragment.Fragment, res *types.DocumentResult, log *slog.Logger) error {
	if len(frags) == 0 {
		return errors.New("pdf: no pdf fragments")
	}
	out := p.SearchablePath(doc)

	start := time.Now()
	err := p.merger.Merge(ctx, fragment.Paths(frags), out)
	p.metrics.ObserveStage(metrics.StageMerge, time.Since(start))
	if err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("failed to remove partial searchable pdf", "error", rmErr)
		}
		return fmt.Errorf("pdf: %w", err)
	}
	res.PDFPath = out
	log.Info("wrote searchable pdf", "file", filepath.Base(out), "pages", len(frags))
	return nil
}

func (p *Pipeline) writeText(doc types.SourceDocument, frags []fragment.Fragment, res *types.DocumentResult, log *slog.Logger) error {
	if len(frags) == 0 {
		return errors.New("txt: no text fragments")
	}
	out := p.TextPath(doc)

	start := time.Now()
	pages, err := assemble.File(frags, out, log)
	p.metrics.ObserveStage(metrics.StageAssemble, time.Since(start))
	if err != nil {
		return fmt.Errorf("txt: %w", err)
	}
	res.TextPath = out
	log.Info("wrote text", "file", filepath.Base(out), "pages", len(pages))
	return nil
}
