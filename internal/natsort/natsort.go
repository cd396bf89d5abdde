// Package natsort orders file names the way people read them: embedded
// numbers compare by value ("page2" < "page10"), letters compare without
// case, and Arabic-Indic and Persian digits count as their ASCII equivalents.
package natsort

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Part is one run of a Key: either a digit run or a non-digit run.
type Part struct {
	Text  string
	IsNum bool
}

// Key is the comparable form of a string. Parts alternate between text and
// numbers, always starting with a (possibly empty) text part.
type Key []Part

// NormalizeDigits maps Arabic-Indic (U+0660..U+0669) and Extended
// Arabic-Indic (U+06F0..U+06F9) digits to ASCII.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

// KeyOf builds the natural sort key for s.
func KeyOf(s string) Key {
	s = cases.Fold().String(NormalizeDigits(s))

	key := Key{}
	var text strings.Builder
	for i := 0; i < len(s); {
		if isDigit(s[i]) {
			j := i
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			key = append(key, Part{Text: text.String()}, Part{Text: s[i:j], IsNum: true})
			text.Reset()
			i = j
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		text.WriteString(s[i : i+size])
		i += size
	}
	return append(key, Part{Text: text.String()})
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Compare returns -1, 0 or +1. Numbers of any length compare by value;
// "007" and "7" are equal.
func Compare(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		var c int
		if a[i].IsNum && b[i].IsNum {
			c = compareNumeric(a[i].Text, b[i].Text)
		} else {
			c = strings.Compare(a[i].Text, b[i].Text)
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(KeyOf(a), KeyOf(b)) < 0
}

// Strings sorts names in natural order. Equal keys keep their input order.
func Strings(names []string) {
	keys := make(map[string]Key, len(names))
	for _, n := range names {
		if _, ok := keys[n]; !ok {
			keys[n] = KeyOf(n)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return Compare(keys[names[i]], keys[names[j]]) < 0
	})
}
