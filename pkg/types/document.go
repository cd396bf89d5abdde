// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus indicates the outcome of one document's pipeline run.
type DocumentStatus string

const (
	// StatusDone means every requested output was produced.
	StatusDone DocumentStatus = "done"
	// StatusPartial means at least one requested output is missing.
	StatusPartial DocumentStatus = "partial"
	// StatusDegraded means OCR was skipped because the engine is unavailable.
	StatusDegraded DocumentStatus = "degraded"
	// StatusFailed means the document could not be processed at all.
	StatusFailed DocumentStatus = "failed"
)

// SourceDocument is a scanned document on disk. It is read-only to the pipeline.
type SourceDocument struct {
	// Path is the filesystem path of the document.
	Path string `json:"path" yaml:"path"`

	// Base is the file name without directory or extension (e.g. "report").
	// Page images and fragments are named after it.
	Base string `json:"base" yaml:"base"`
}

// NewSourceDocument derives the base name from path.
func NewSourceDocument(path string) SourceDocument {
	name := filepath.Base(path)
	return SourceDocument{
		Path: path,
		Base: strings.TrimSuffix(name, filepath.Ext(name)),
	}
}

// Dir returns the directory holding the document; final outputs go there.
func (d SourceDocument) Dir() string {
	return filepath.Dir(d.Path)
}

// DocumentResult records what a pipeline run produced for one document.
type DocumentResult struct {
	Document SourceDocument `json:"document" yaml:"document"`
	Status   DocumentStatus `json:"status" yaml:"status"`

	// PDFPath and TextPath are set only when the artifact was written.
	PDFPath  string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
	TextPath string `json:"text_path,omitempty" yaml:"text_path,omitempty"`

	// Pages is the number of page images rasterized.
	Pages int `json:"pages" yaml:"pages"`
	// PagesOCRed counts pages with at least one fragment written.
	PagesOCRed int `json:"pages_ocred" yaml:"pages_ocred"`
	// FailedPages lists 1-based page numbers whose OCR failed.
	FailedPages []int `json:"failed_pages,omitempty" yaml:"failed_pages,omitempty"`

	// UsedFallback is true when the secondary rasterizer produced the images.
	UsedFallback bool `json:"used_fallback" yaml:"used_fallback"`

	// Error is the fatal error message, or the first output-level failure.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// Notes collects non-fatal notices (degradation, cleanup failures).
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`

	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Produced lists the outputs written for the document.
func (r DocumentResult) Produced() []OutputKind {
	var out []OutputKind
	if r.PDFPath != "" {
		out = append(out, OutputPDF)
	}
	if r.TextPath != "" {
		out = append(out, OutputText)
	}
	return out
}
