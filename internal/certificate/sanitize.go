package certificate

import (
	"regexp"
	"strings"
)

// stripped are the emoji and symbol blocks that are removed outright.
var stripped = [][2]rune{
	{0x1F000, 0x1F9FF},
	{0x2000, 0x2FFF},
	{0x3000, 0x9FFF},
	{0xA000, 0xAFFF},
}

// Sanitize reduces s to characters the core PDF fonts can draw: printable
// ASCII and Latin-1. Emoji and symbol blocks are dropped, anything else
// becomes '?'.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

outer:
	for _, r := range s {
		for _, rng := range stripped {
			if r >= rng[0] && r <= rng[1] {
				continue outer
			}
		}
		if (r >= 0x20 && r <= 0x7E) || (r >= 0xA0 && r <= 0xFF) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}

// Wrap splits s into lines of at most n characters. Nothing is dropped.
func Wrap(s string, n int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	lines := make([]string, 0, len(runes)/n+1)
	for len(runes) > n {
		lines = append(lines, string(runes[:n]))
		runes = runes[n:]
	}
	return append(lines, string(runes))
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName is the name a certificate for fileName is saved under.
func FileName(fileName string, unixMillis int64) string {
	return "certificate_" + nonAlnum.ReplaceAllString(Sanitize(fileName), "_") + "_" + itoa(unixMillis) + ".pdf"
}
