// Package scorer computes the confidence rate between the source company
// mention and the canonical name resolved from a registry.
package scorer

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/xl-idp/reference-inn/internal/text"
)

// orgForms lists the legal-form tokens stripped before comparison. Some
// entries mix Latin and Cyrillic letters because source files do.
var orgForms = []string{"ООО", "OOO", "OОO", "ОOО", "OOО", "ООO", "ОАО", "ИП", "ЗАО", "3АО", "АО"}

// translateLimit caps what is sent to the translator per call.
const translateLimit = 4500

// Translator is the subset of the translation client the scorer needs.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// StripOrgForms removes legal-form tokens and double quotes from a company
// name so the fuzzy score reflects the distinctive part only.
func StripOrgForms(name string) string {
	for _, form := range orgForms {
		name = strings.ReplaceAll(name, form, "")
	}
	return strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
}

// Ratio is the Levenshtein similarity of a and b on a 0..100 scale.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (longest - dist) * 100 / longest
}

// PartialRatio slides the shorter string across the longer one and returns
// the best window Ratio. Equal-length inputs degrade to a plain Ratio.
func PartialRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	if len(ra) == len(rb) {
		return Ratio(string(ra), string(rb))
	}
	best := 0
	for i := 0; i+len(ra) <= len(rb); i++ {
		if score := Ratio(string(ra), string(rb[i:i+len(ra)])); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// Confidence scores how well the canonical name resolved from a registry
// matches the translated mention. The name is stripped of legal forms and
// compared twice, raw and after a Russian-to-English translation, and the
// better partial-ratio score wins. The second value is false when either
// input is empty and no score applies.
func Confidence(ctx context.Context, tr Translator, canonicalName, mention string) (int, bool) {
	if canonicalName == "" || mention == "" {
		return 0, false
	}
	name := StripOrgForms(text.CollapseSpaces(canonicalName))
	mentionUpper := strings.ToUpper(mention)
	score := PartialRatio(strings.ToUpper(name), mentionUpper)

	nameEn := name
	if tr != nil {
		if translated, err := tr.Translate(ctx, truncate(name, translateLimit), "ru", "en"); err == nil && translated != "" {
			nameEn = translated
		}
	}
	if second := PartialRatio(strings.ToUpper(nameEn), mentionUpper); second > score {
		score = second
	}
	return score, true
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
