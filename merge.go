package dentdir

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minPhoneDigits is the shortest digit run treated as a phone number when
// matching by phone. Shorter runs are extensions or noise.
const minPhoneDigits = 7

// NormalizeName returns the deduplication key of a clinic name: trimmed and
// lowercased with Turkish casing rules, so "YILMAZ" and "yılmaz" collide.
func NormalizeName(name string) string {
	return foldKey(name)
}

// foldKey trims s and lowercases it with Turkish casing rules.
// A Caser is stateful, so a new one is made per call.
func foldKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Lower(language.Turkish).String(s)
}

// Matcher reports whether two clinics are the same real-world entity.
type Matcher func(a, b *Clinic) bool

// NameMatcher treats clinics with equal normalized names as duplicates.
func NameMatcher(a, b *Clinic) bool {
	return NormalizeName(a.Name) == NormalizeName(b.Name)
}

// NameOrPhoneMatcher treats clinics as duplicates when their normalized
// names are equal or when they share a phone number. Phone numbers compare
// by digits only, so "0532 111 22 33" equals "0532-111-2233".
func NameOrPhoneMatcher(a, b *Clinic) bool {
	if NameMatcher(a, b) {
		return true
	}
	for _, pa := range phoneKeys(a.Phone) {
		for _, pb := range phoneKeys(b.Phone) {
			if pa == pb {
				return true
			}
		}
	}
	return false
}

// phoneKeys returns the digit-only form of every number in a phone field.
func phoneKeys(phone string) []string {
	var keys []string
	for _, p := range SplitPhones(phone) {
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, p)
		if len(digits) >= minPhoneDigits {
			keys = append(keys, digits)
		}
	}
	return keys
}

// Merge returns the candidates from batch that match neither a clinic in
// existing nor a candidate accepted earlier from the same batch, in the
// order received. Candidates without a usable name are dropped. Neither
// input slice is modified.
func Merge(existing, batch []*Clinic, match Matcher) []*Clinic {
	if match == nil {
		match = NameMatcher
	}

	var accepted []*Clinic
	for _, c := range batch {
		if c == nil || NormalizeName(c.Name) == "" {
			continue
		}
		if containsMatch(existing, c, match) || containsMatch(accepted, c, match) {
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted
}

func containsMatch(clinics []*Clinic, c *Clinic, match Matcher) bool {
	for _, other := range clinics {
		if match(other, c) {
			return true
		}
	}
	return false
}
