package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const maxBioLength = 300

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeBio cleans user-supplied profile text: HTML stripped, control
// bytes removed, length capped.
func SanitizeBio(input string) string {
	input = htmlPolicy.Sanitize(input)
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	return truncate(input, maxBioLength)
}

// SanitizeString trims and bounds generic user input.
func SanitizeString(input string, maxLen int) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	return truncate(input, maxLen)
}

// truncate caps s at maxLen bytes without splitting a multi-byte rune.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
