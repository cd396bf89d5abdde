// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics collects per-run pipeline metrics on a private registry and
// writes them in the Prometheus text format for a node-exporter textfile
// collector. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages timed by ObserveStage.
const (
	StageRasterize = "rasterize"
	StageOCR       = "ocr"
	StageMerge     = "merge"
	StageAssemble  = "assemble"
	StageCleanup   = "cleanup"
)

// Metrics holds the collectors of one process run.
type Metrics struct {
	registry *prometheus.Registry

	documents       *prometheus.CounterVec
	documentSeconds *prometheus.HistogramVec
	pages           *prometheus.CounterVec
	pageSeconds     prometheus.Histogram
	stageSeconds    *prometheus.HistogramVec
	fallbacks       prometheus.Counter
	cleanupFailures prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	documents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanocr",
			Name:      "documents_total",
			Help:      "Documents processed by final status.",
		},
		[]string{"status"},
	)
	documentSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanocr",
			Name:      "document_duration_seconds",
			Help:      "Wall time per document by final status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"status"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanocr",
			Name:      "pages_total",
			Help:      "Pages submitted to OCR by outcome.",
		},
		[]string{"outcome"},
	)
	pageSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scanocr",
			Name:      "page_ocr_duration_seconds",
			Help:      "OCR time per page across all requested output kinds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
	)
	stageSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanocr",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scanocr",
		Name:      "rasterizer_fallback_total",
		Help:      "Documents rasterized by the fallback converter.",
	})
	cleanupFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scanocr",
		Name:      "cleanup_failures_total",
		Help:      "Workspace entries that could not be removed.",
	})

	registry.MustRegister(documents, documentSeconds, pages, pageSeconds, stageSeconds, fallbacks, cleanupFailures)

	return &Metrics{
		registry:        registry,
		documents:       documents,
		documentSeconds: documentSeconds,
		pages:           pages,
		pageSeconds:     pageSeconds,
		stageSeconds:    stageSeconds,
		fallbacks:       fallbacks,
		cleanupFailures: cleanupFailures,
	}
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDocument counts a finished document and its wall time under status.
func (m *Metrics) ObserveDocument(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(status).Inc()
	m.documentSeconds.WithLabelValues(status).Observe(d.Seconds())
}

// ObservePage counts one OCRed page as ok or failed.
func (m *Metrics) ObservePage(failed bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.pages.WithLabelValues(outcome).Inc()
	m.pageSeconds.Observe(d.Seconds())
}

// ObserveStage records the wall time of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// Fallback counts a document rasterized by the fallback converter.
func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// CleanupFailures adds n workspace entries that could not be removed.
func (m *Metrics) CleanupFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupFailures.Add(float64(n))
}

// WriteFile writes every metric to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
