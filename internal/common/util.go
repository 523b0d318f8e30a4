package common

import (
	"encoding/hex"
	"strings"
)

// NormalizeHex trims whitespace, drops an optional 0x prefix and lower-cases
// the value. It reports false when the rest is not valid hex.
func NormalizeHex(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return "", false
	}
	if _, err := hex.DecodeString(padEven(s)); err != nil {
		return "", false
	}
	return s, true
}

func padEven(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}

// SplitTags turns a comma separated tag string into trimmed, non-empty tags.
func SplitTags(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinTags is the inverse of SplitTags.
func JoinTags(tags []string) string {
	return strings.Join(SplitTags(strings.Join(tags, ",")), ",")
}
