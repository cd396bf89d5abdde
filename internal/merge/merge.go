// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge joins many per-page PDF fragments into one document through
// bounded intermediate merges, so at most one batch of fragments is open at a
// time regardless of page count.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ChunkPrefix marks intermediate documents. Batch discovery skips files
// carrying it.
const ChunkPrefix = "._chunk_"

// ErrNoInputs is returned when there is nothing to merge.
var ErrNoInputs = errors.New("no fragments to merge")

// Merger concatenates the pages of inputs, in order, into out.
type Merger interface {
	Merge(inputs []string, out string) error
}

// Batched merges in two levels using an underlying Merger.
type Batched struct {
	merger    Merger
	batchSize int
	log       *slog.Logger
	remove    func(string) error
}

// NewBatched returns a batched merger. A batch size below 1 is treated as 1.
func NewBatched(m Merger, batchSize int, logger *slog.Logger) *Batched {
	if batchSize < 1 {
		batchSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batched{merger: m, batchSize: batchSize, log: logger, remove: os.Remove}
}

// Partition splits paths into consecutive groups of at most size.
func Partition(paths []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(paths); start += size {
		end := min(start+size, len(paths))
		batches = append(batches, paths[start:end])
	}
	return batches
}

// ChunkPath names the i-th intermediate for out. Intermediates live next to
// out and are hidden.
func ChunkPath(out string, i int) string {
	base := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
	return filepath.Join(filepath.Dir(out), fmt.Sprintf("%s%s_%03d.pdf", ChunkPrefix, base, i))
}

// Merge writes inputs, in the given order, to out. Ordering is the caller's
// responsibility. Every intermediate is removed before Merge returns, whether
// or not the merge succeeded; removal failures are logged.
func (b *Batched) Merge(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}

	batches := Partition(inputs, b.batchSize)
	if len(batches) == 1 {
		if err := b.merger.Merge(inputs, out); err != nil {
			return fmt.Errorf("merging %d fragments: %w", len(inputs), err)
		}
		return nil
	}

	var chunks []string
	defer func() { b.cleanup(chunks) }()

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := ChunkPath(out, i)
		// Recorded before merging: a failed merge may leave a partial file.
		chunks = append(chunks, chunk)
		if err := b.merger.Merge(batch, chunk); err != nil {
			return fmt.Errorf("merging batch %d of %d: %w", i+1, len(batches), err)
		}
		b.log.Debug("merged batch", "batch", i+1, "of", len(batches), "fragments", len(batch))
	}

	if err := b.merger.Merge(chunks, out); err != nil {
		return fmt.Errorf("merging %d batches: %w", len(chunks), err)
	}
	return nil
}

func (b *Batched) cleanup(chunks []string) {
	for _, c := range chunks {
		if err := b.remove(c); err != nil && !os.IsNotExist(err) {
			b.log.Warn("failed to remove intermediate", "file", c, "error", err)
		}
	}
}
