// Package segment splits captured content into store-safe fragments and
// enforces the storage size guard for oversized payloads.
package segment

import (
	"fmt"
	"unicode"
)

const (
	// DefaultFragmentSize matches the store's per-block rich text limit.
	DefaultFragmentSize = 2000

	// breakWindow is how far back from a cut point we look for a natural break.
	breakWindow = 100
)

const truncationNotice = "\n\n[Content truncated. Full source: %s]"

// Fragments splits content into ordered fragments of at most maxSize runes.
// Cuts prefer a paragraph break, then a sentence end, then whitespace, all
// within breakWindow of the limit; otherwise the cut lands on the hard limit.
// Concatenating the fragments in order reproduces content exactly.
// Empty content yields nil.
func Fragments(content string, maxSize int) []string {
	if content == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultFragmentSize
	}

	r := []rune(content)
	var frags []string
	for len(r) > 0 {
		cut := cutPoint(r, maxSize)
		frags = append(frags, string(r[:cut]))
		r = r[cut:]
	}
	return frags
}

// Truncate applies the storage ceiling: content longer than ceiling runes is
// cut at the nearest natural break before the ceiling and a truncation notice
// carrying the source URL is appended. The second return reports whether
// truncation happened.
func Truncate(content, sourceURL string, ceiling int) (string, bool) {
	if ceiling <= 0 {
		return content, false
	}
	r := []rune(content)
	if len(r) <= ceiling {
		return content, false
	}
	cut := cutPoint(r, ceiling)
	return string(r[:cut]) + fmt.Sprintf(truncationNotice, sourceURL), true
}

// Clip bounds content to max runes without a marker, for model input caps.
// Same break semantics as Fragments: never inside a word when avoidable.
func Clip(content string, max int) string {
	if max <= 0 {
		return content
	}
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:cutPoint(r, max)])
}

// cutPoint returns where to cut r so the head is at most limit runes.
// Searches backward within breakWindow for "\n\n", then '.', then any
// whitespace, and cuts just after the break found.
func cutPoint(r []rune, limit int) int {
	if len(r) <= limit {
		return len(r)
	}

	lo := limit - breakWindow
	if lo < 1 {
		lo = 1
	}

	for i := limit; i >= lo; i-- {
		if i >= 2 && r[i-1] == '\n' && r[i-2] == '\n' {
			return i
		}
	}
	for i := limit; i >= lo; i-- {
		if r[i-1] == '.' {
			return i
		}
	}
	for i := limit; i >= lo; i-- {
		if unicode.IsSpace(r[i-1]) {
			return i
		}
	}
	return limit
}
