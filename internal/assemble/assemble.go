// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble concatenates per-page text fragments into one text file in
// ascending page order, each page introduced by a separator line.
package assemble

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/scanocr/internal/fragment"
)

var rule = strings.Repeat("=", 31)

// Separator returns the line written before the text of page.
func Separator(page int) string {
	return fmt.Sprintf("%s%d%s\n", rule, page, rule)
}

// Write copies each fragment to w, in ascending page order, after its
// separator and followed by a newline. frags is sorted in place. A fragment
// that cannot be read is skipped and logged. It returns the pages written.
func Write(w io.Writer, frags []fragment.Fragment, logger *slog.Logger) ([]int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fragment.Sort(frags)

	var pages []int
	for _, f := range frags {
		content, err := os.ReadFile(f.Path)
		if err != nil {
			logger.Warn("skipping unreadable text fragment", "page", f.Page, "error", err)
			continue
		}
		if _, err := io.WriteString(w, Separator(f.Page)); err != nil {
			return pages, err
		}
		if _, err := w.Write(content); err != nil {
			return pages, err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return pages, err
		}
		pages = append(pages, f.Page)
	}
	return pages, nil
}

// File assembles frags into the text file at out, then strips blank lines
// from it. A failure of the stripping pass is logged and leaves the
// assembled file in place.
func File(frags []fragment.Fragment, out string, logger *slog.Logger) ([]int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", out, err)
	}
	bw := bufio.NewWriter(f)
	pages, err := Write(bw, frags, logger)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return pages, fmt.Errorf("writing %s: %w", out, err)
	}

	if err := StripBlankLines(out); err != nil {
		logger.Warn("failed to strip blank lines", "file", filepath.Base(out), "error", err)
	}
	return pages, nil
}

// StripBlankLines rewrites the file at path without lines that are empty or
// whitespace-only. The rewrite goes through a temporary file in the same
// directory so a failure leaves the original untouched.
func StripBlankLines(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
