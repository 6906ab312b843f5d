// Package phone normalizes customer phone numbers for matching.
//
// Numbers arrive in inconsistent formats: with or without the country code,
// with spaces, dashes or parentheses. Matching works on the last 9 digits,
// which is the local significant part for Uzbek numbers. Two numbers whose
// 9-digit suffixes collide across different country codes would incorrectly
// merge; this is an accepted approximation of the matching heuristic, not a
// strict uniqueness guarantee.
package phone

import "strings"

// suffixLen is the length of the canonical local part
const suffixLen = 9

// Normalize strips all non-digit characters and returns the last 9 digits.
// Shorter inputs are returned digits-only without padding.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) <= suffixLen {
		return digits
	}
	return digits[len(digits)-suffixLen:]
}

// Matches reports whether two raw phone strings resolve to the same
// canonical suffix. Blank inputs never match anything.
func Matches(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}

// Candidates returns the stored-phone variants to probe when searching for
// an existing customer: the raw input plus the suffix in the formats seen in
// production data.
func Candidates(raw string) []string {
	suffix := Normalize(raw)
	if suffix == "" {
		return nil
	}
	return []string{
		raw,
		suffix,
		"+998" + suffix,
		"998" + suffix,
	}
}
