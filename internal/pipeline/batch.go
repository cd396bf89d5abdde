// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/scanocr/internal/merge"
	"github.com/pdiddy/scanocr/internal/natsort"
	"github.com/pdiddy/scanocr/pkg/types"
)

// Recorder persists document outcomes. A recording failure is logged and
// never affects the batch.
type Recorder interface {
	Record(ctx context.Context, res types.DocumentResult) error
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Done     int
	Partial  int
	Degraded int
	Failed   int
	// Results are in processing order.
	Results []types.DocumentResult
}

// Total returns the number of documents processed.
func (r BatchResult) Total() int {
	return r.Done + r.Partial + r.Degraded + r.Failed
}

// HasFailures reports whether any document failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ProcessBatch runs every document in paths sequentially, printing one status
// line per document and a summary to w. A failed document never stops the
// batch; only cancellation of ctx does.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string, rec Recorder, w io.Writer) BatchResult {
	var result BatchResult
	for _, path := range paths {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "cancelled: %d document(s) not processed\n", len(paths)-result.Total())
			break
		}
		res, _ := p.Run(ctx, path)
		result.Results = append(result.Results, res)
		switch res.Status {
		case types.StatusDone:
			result.Done++
		case types.StatusPartial:
			result.Partial++
		case types.StatusDegraded:
			result.Degraded++
		default:
			result.Failed++
		}
		fmt.Fprintln(w, StatusLine(res))

		if rec != nil {
			if err := rec.Record(ctx, res); err != nil {
				p.log.Warn("failed to record run history", "document", res.Document.Base, "error", err)
			}
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d done, %d partial, %d degraded, %d failed (total: %d)\n",
		result.Done, result.Partial, result.Degraded, result.Failed, result.Total())
	return result
}

// StatusLine renders the one-line summary of a document result.
func StatusLine(res types.DocumentResult) string {
	base := res.Document.Base
	switch res.Status {
	case types.StatusDone:
		return fmt.Sprintf("done:     %s (%s)", base, producedList(res))
	case types.StatusPartial:
		return fmt.Sprintf("partial:  %s (%s; %s)", base, producedList(res), res.Error)
	case types.StatusDegraded:
		return fmt.Sprintf("degraded: %s (OCR engine unavailable)", base)
	default:
		return fmt.Sprintf("failed:   %s (%s)", base, res.Error)
	}
}

func producedList(res types.DocumentResult) string {
	var parts []string
	for _, kind := range res.Produced() {
		parts = append(parts, string(kind))
	}
	s := strings.Join(parts, ", ")
	if n := len(res.FailedPages); n > 0 {
		s += fmt.Sprintf(", %d page(s) failed OCR", n)
	}
	return s
}

// Discover expands paths into the documents to process. Directories
// contribute their PDF files (not recursively) in natural order; files are
// kept in the order given. Outputs of earlier runs and merge intermediates
// are skipped, and a document named twice is processed once.
func Discover(paths []string, searchableSuffix string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", p, err)
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && isSourcePDF(e.Name(), searchableSuffix) {
				names = append(names, e.Name())
			}
		}
		natsort.Strings(names)
		for _, name := range names {
			add(filepath.Join(p, name))
		}
	}
	return out, nil
}

func isSourcePDF(name, searchableSuffix string) bool {
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".pdf") {
		return false
	}
	if strings.HasPrefix(name, merge.ChunkPrefix) {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	return searchableSuffix == "" || !strings.HasSuffix(stem, searchableSuffix)
}
