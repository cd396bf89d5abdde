// Package fragment recovers page order from the files written into a
// workspace. Page images and OCR outputs carry their page number only in
// their name ("<base>-<NNNN>.<ext>"); this package parses it once and
// threads it through as a field.
package fragment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Extensions of the files the pipeline exchanges through the workspace.
const (
	ExtImage = ".png"
	ExtPDF   = ".pdf"
	ExtText  = ".txt"
)

// Fragment is one per-page file and the page number recovered from its name.
// Page 0 means the name could not be parsed.
type Fragment struct {
	Path string
	Page int
}

// Stem returns the canonical stem for page: "<base>-<NNNN>".
func Stem(base string, page int) string {
	return fmt.Sprintf("%s-%04d", base, page)
}

// PageNumber strips the "<base>-" prefix and the extension from the file
// name at path and parses the remainder. A remainder that is not an integer
// yields 0 instead of an error, so such a file sorts before page 1.
func PageNumber(path, base string) int {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	rest := strings.TrimPrefix(stem, base+"-")
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return n
}

// Collect lists the files in dir named "<base>-*<ext>" and returns them
// sorted by page number. Ties keep directory listing order.
func Collect(dir, base, ext string) ([]Fragment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	prefix := base + "-"
	var frags []Fragment
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		path := filepath.Join(dir, name)
		frags = append(frags, Fragment{Path: path, Page: PageNumber(path, base)})
	}
	Sort(frags)
	return frags, nil
}

// Sort orders fragments by ascending page number, stable on ties.
func Sort(frags []Fragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].Page < frags[j].Page
	})
}

// Paths returns the paths of frags in order.
func Paths(frags []Fragment) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = f.Path
	}
	return out
}
