// Package registration normalizes and validates UK vehicle registration marks.
package registration

import "strings"

// Normalize strips all whitespace and uppercases a raw registration. The
// normalized form is the lookup key and the only form persisted.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// IsValid reports whether raw looks like a UK registration once normalized:
// alphanumeric and 2-8 characters. Deliberately looser than the DVLA plate
// grammar so older and personalised plates pass.
func IsValid(raw string) bool {
	normalized := Normalize(raw)
	if len(normalized) < 2 || len(normalized) > 8 {
		return false
	}
	for _, r := range normalized {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Display formats a normalized registration for presentation, inserting the
// conventional space before the last three characters (AB12CDE -> AB12 CDE).
// Stored values stay in normalized form.
func Display(normalized string) string {
	if len(normalized) <= 4 {
		return normalized
	}
	split := len(normalized) - 3
	return normalized[:split] + " " + normalized[split:]
}
