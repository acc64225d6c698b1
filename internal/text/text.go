// Package text holds the normalization helpers applied to company mentions
// before search, caching, and fuzzy comparison.
package text

import (
	"regexp"
	"strings"
)

// replacedQuotes are the quote and bracket variants collapsed to a plain
// double quote so cache keys and search queries agree across source files.
var replacedQuotes = []string{"<", ">", "«", "»", "’", "‘", "“", "”", "`", "'", `"`}

var multiSpace = regexp.MustCompile(" +")

// NormalizeQuotes replaces every quote variant in sentence with a standard
// double quote.
func NormalizeQuotes(sentence string) string {
	for _, q := range replacedQuotes {
		sentence = strings.ReplaceAll(sentence, q, `"`)
	}
	return sentence
}

// CollapseSpaces squeezes runs of spaces into one and trims the ends.
func CollapseSpaces(sentence string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(sentence, " "))
}

// StripCarriageToken removes the literal _x000D_ marker that XLSX exports
// leave in multi-line cells.
func StripCarriageToken(sentence string) string {
	return strings.ReplaceAll(sentence, "_x000D_", "")
}

// PrepareSentence applies the full normalization chain used for cache keys
// and search queries.
func PrepareSentence(sentence string) string {
	return CollapseSpaces(NormalizeQuotes(StripCarriageToken(sentence)))
}

// DigitRuns extracts every maximal run of ASCII digits from s, in order of
// appearance. Candidate identifiers are pulled out of search snippets with
// this.
func DigitRuns(s string) []string {
	var (
		runs  []string
		start = -1
	)
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, s[start:])
	}
	return runs
}
