package pii

import "strings"

// Normalizer fixes the case/whitespace policy applied to a value before
// token derivation. Each protected field declares one policy so the same
// value always maps to the same token.
type Normalizer func(string) string

// NormalizeID trims and case-folds. Used for national IDs (CIN) and
// insurance IDs, which are matched case-insensitively.
func NormalizeID(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizePhone keeps digits only, so "+212 661-234567" and "0661234567"
// written with separators still match the same stored number formatting.
func NormalizePhone(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeExact trims only. For fields where case is significant.
func NormalizeExact(v string) string {
	return strings.TrimSpace(v)
}
