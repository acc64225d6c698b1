// Package ident validates national taxpayer identifiers for the supported
// CIS jurisdictions. Validation is pure: no I/O, no allocation beyond the
// cleaned digit string.
package ident

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Jurisdiction identifies which national format an identifier belongs to.
type Jurisdiction string

const (
	Russia     Jurisdiction = "russia"
	Kazakhstan Jurisdiction = "kazakhstan"
	Belarus    Jurisdiction = "belarus"
	Uzbekistan Jurisdiction = "uzbekistan"
)

// Priority is the fixed dispatch order used when a candidate validates
// against more than one jurisdiction. Russia always wins when included.
var Priority = []Jurisdiction{Russia, Kazakhstan, Belarus, Uzbekistan}

// Validation failure classes. Callers that only care about a yes/no answer
// should use IsValid instead.
var (
	ErrInvalidFormat   = eris.New("ident: not a digit string")
	ErrInvalidLength   = eris.New("ident: wrong length")
	ErrInvalidChecksum = eris.New("ident: checksum mismatch")
)

type checkFunc func(digits string) error

var checks = map[Jurisdiction]checkFunc{
	Russia:     checkRussia,
	Kazakhstan: checkKazakhstan,
	Belarus:    checkBelarus,
	Uzbekistan: checkUzbekistan,
}

// Clean strips surrounding whitespace and interior spaces from a candidate.
func Clean(candidate string) string {
	return strings.ReplaceAll(strings.TrimSpace(candidate), " ", "")
}

// Validate cleans the candidate and checks it against the jurisdiction's
// format. It returns the cleaned digit string on success. Validate is
// idempotent: validating an already-validated string yields the same value.
func Validate(j Jurisdiction, candidate string) (string, error) {
	digits := Clean(candidate)
	if !isDigits(digits) {
		return "", ErrInvalidFormat
	}
	check, ok := checks[j]
	if !ok {
		return "", eris.Errorf("ident: unknown jurisdiction %q", string(j))
	}
	if err := check(digits); err != nil {
		return "", err
	}
	return digits, nil
}

// IsValid reports whether the candidate is a well-formed identifier for the
// jurisdiction. It never returns an error for malformed input.
func IsValid(j Jurisdiction, candidate string) bool {
	_, err := Validate(j, candidate)
	return err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func weightedSum(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		if i >= len(digits) {
			break
		}
		sum += w * int(digits[i]-'0')
	}
	return sum
}
