package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks while keeping safe markup.
// Input the policy leaves intact is returned as typed, without entity escaping.
func Sanitize(input string) string {
	clean := ugcPolicy.Sanitize(input)
	if html.UnescapeString(clean) == input {
		return input
	}
	return clean
}

// SanitizePlain strips every tag, for single-line fields such as titles and names.
func SanitizePlain(input string) string {
	// StrictPolicy escapes entities; undo that so "Q&A" is stored as typed
	return html.UnescapeString(strictPolicy.Sanitize(input))
}
