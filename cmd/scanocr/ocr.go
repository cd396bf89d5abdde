// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scanocr/internal/ledger"
	"github.com/pdiddy/scanocr/internal/metrics"
	"github.com/pdiddy/scanocr/internal/pdfdoc"
	"github.com/pdiddy/scanocr/internal/pipeline"
	"github.com/pdiddy/scanocr/internal/toolchain"
	"github.com/pdiddy/scanocr/pkg/types"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [paths...]",
	Short: "OCR scanned PDFs into a searchable PDF and a text file",
	Long: `OCR processes each document in turn: its pages are rasterized into a
private workspace, OCR runs on the pages concurrently, and the per-page
results are reassembled in page order. The searchable PDF is written as
<name>-searchable.pdf and the text as <name>.txt next to the source.

Arguments may be PDF files or directories; a directory contributes its PDF
files in natural order (page2 before page10). With no arguments the current
directory is used. A failed document never stops the batch; the exit code is
non-zero when any document failed.`,
	RunE: runOCR,
}

func runOCR(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	if len(args) == 0 {
		args = []string{"."}
	}
	docs, err := pipeline.Discover(args, cfg.SearchableSuffix)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return errors.New("no PDF documents found")
	}

	tools := toolchain.Resolve()
	for _, t := range tools.All() {
		logger.Debug("resolved tool", "role", t.Role, "path", t.Path)
	}

	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	var m *metrics.Metrics
	if metricsFile != "" {
		m = metrics.New()
	}

	lib := pdfdoc.New()
	p, err := pipeline.New(cfg, pipeline.Deps{
		Tools:   tools,
		Merger:  lib,
		Pages:   lib,
		Metrics: m,
		Logger:  logger,
		Epoch:   time.Now(),
	})
	if err != nil {
		return err
	}

	var rec pipeline.Recorder
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		store, err := ledger.Open(historyPath())
		if err != nil {
			logger.Warn("run history disabled", "error", err)
		} else {
			defer store.Close()
			rec = store
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := p.ProcessBatch(ctx, docs, rec, os.Stdout)

	if m != nil {
		if err := m.WriteFile(metricsFile); err != nil {
			logger.Warn("failed to write metrics", "file", metricsFile, "error", err)
		}
	}
	if reportFile, _ := cmd.Flags().GetString("report"); reportFile != "" {
		if err := writeReport(reportFile, cfg, tools, result); err != nil {
			logger.Warn("failed to write report", "file", reportFile, "error", err)
		}
	}

	if result.HasFailures() {
		return fmt.Errorf("%d of %d document(s) failed", result.Failed, len(docs))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// batchReport is the YAML document written by --report.
type batchReport struct {
	GeneratedAt time.Time              `yaml:"generated_at"`
	Config      types.PipelineConfig   `yaml:"config"`
	Tools       toolchain.Tools        `yaml:"tools"`
	Done        int                    `yaml:"done"`
	Partial     int                    `yaml:"partial"`
	Degraded    int                    `yaml:"degraded"`
	Failed      int                    `yaml:"failed"`
	Documents   []types.DocumentResult `yaml:"documents"`
}

func writeReport(path string, cfg types.PipelineConfig, tools toolchain.Tools, result pipeline.BatchResult) error {
	data, err := yaml.Marshal(batchReport{
		GeneratedAt: time.Now().UTC(),
		Config:      cfg,
		Tools:       tools,
		Done:        result.Done,
		Partial:     result.Partial,
		Degraded:    result.Degraded,
		Failed:      result.Failed,
		Documents:   result.Results,
	})
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func init() {
	d := types.DefaultPipelineConfig()
	f := ocrCmd.Flags()
	f.Int("density", d.Density, "rasterization resolution in DPI")
	f.String("color", string(d.ColorMode), "rasterization color mode: gray or color")
	f.Int("workers", d.MaxWorkers, "concurrent OCR workers")
	f.StringSlice("lang", d.Languages, "OCR language codes (e.g. ara,eng)")
	f.Int("psm", d.PageSegMode, "OCR page segmentation mode")
	f.Int("oem", d.EngineMode, "OCR engine mode")
	f.StringSlice("outputs", []string{"pdf", "txt"}, "outputs to produce: pdf, txt")
	f.Bool("keep-images", false, "keep the workspace with page images and fragments")
	f.Int("merge-batch", d.MergeBatchSize, "page fragments merged per intermediate document")
	f.Duration("timeout", d.ToolTimeout, "timeout for each external tool invocation")
	f.String("pages", "", "only OCR these pages, e.g. 1,3,5-8")
	f.String("workspace-root", "", "parent directory for workspaces (default: next to each document)")
	f.String("metrics-file", "", "write Prometheus metrics to this file when done")
	f.String("report", "", "write a YAML batch report to this file")
	f.Bool("no-history", false, "do not record this run in the history database")

	for key, flag := range map[string]string{
		"density":                  "density",
		"color_mode":               "color",
		"max_workers":              "workers",
		"languages":                "lang",
		"page_segmentation_mode":   "psm",
		"engine_mode":              "oem",
		"outputs":                  "outputs",
		"keep_intermediate_images": "keep-images",
		"merge_batch_size":         "merge-batch",
		"tool_timeout":             "timeout",
		"pages":                    "pages",
		"workspace_root":           "workspace-root",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(ocrCmd)
}
