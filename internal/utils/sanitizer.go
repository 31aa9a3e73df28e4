// Package utils provides utility functions used throughout the application.
package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// scriptTagsRegex matches script tags
	scriptTagsRegex = regexp.MustCompile(`(?i)<script[\s\S]*?>[\s\S]*?</script>`)

	// htmlTagsRegex matches HTML tags
	htmlTagsRegex = regexp.MustCompile(`<[^>]*>`)

	// multipleSpacesRegex matches multiple spaces
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// SanitizeString removes HTML tags and normalizes whitespace
func SanitizeString(s string) string {
	// Remove script tags first
	s = scriptTagsRegex.ReplaceAllString(s, "")

	s = htmlTagsRegex.ReplaceAllString(s, "")
	s = multipleSpacesRegex.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// StripNonPrintable removes non-printable characters from a string
func StripNonPrintable(s string) string {
	result := strings.Builder{}
	for _, r := range s {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// SanitizeSearchQuery cleans a catalog query. Letters in any script are kept.
func SanitizeSearchQuery(query string) string {
	return SanitizeString(StripNonPrintable(query))
}

// TruncateString truncates a string to at most maxLen bytes with an ellipsis,
// without splitting a UTF-8 sequence.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}

	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
