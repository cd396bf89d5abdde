// Package pagespec parses human page-range specifications such as
// "1,3,5-8" into sorted, deduplicated 0-based page indices.
package pagespec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrEmptySpec   = errors.New("page specification is empty")
	ErrInvalidSpec = errors.New("invalid page specification")
	ErrNoPages     = errors.New("no valid pages in range")
)

// Parse converts spec into 0-based indices for a document with total pages.
// Pages are 1-based in spec. Reversed ranges ("8-5") are swapped, pages
// outside 1..total are dropped, and empty items between commas are ignored.
// The result is ascending with no duplicates; it is an error if it is empty.
func Parse(spec string, total int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptySpec
	}

	seen := make(map[int]bool)
	var out []int
	add := func(page int) {
		i := page - 1
		if i < 0 || i >= total || seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, errA := strconv.Atoi(strings.TrimSpace(lo))
			b, errB := strconv.Atoi(strings.TrimSpace(hi))
			if errA != nil || errB != nil {
				return nil, fmt.Errorf("%w: bad range %q", ErrInvalidSpec, part)
			}
			if a > b {
				a, b = b, a
			}
			// Clamp before iterating so "1-999999999" stays cheap.
			if a < 1 {
				a = 1
			}
			if b > total {
				b = total
			}
			for k := a; k <= b; k++ {
				add(k)
			}
			continue
		}
		k, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: bad page number %q", ErrInvalidSpec, part)
		}
		add(k)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q of %d pages", ErrNoPages, spec, total)
	}
	sort.Ints(out)
	return out, nil
}

// Validate checks the syntax of spec without resolving it against a page
// count.
func Validate(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ErrEmptySpec
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			hi = lo
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lo)); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSpec, part)
		}
		if _, err := strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSpec, part)
		}
	}
	return nil
}
