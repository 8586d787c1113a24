// Package utils provides utility functions used throughout the application.
package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// MaxQueryLength bounds search queries accepted from callers.
const MaxQueryLength = 200

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

// SanitizeQuery prepares free text for an upstream search.
func SanitizeQuery(query string) string {
	query = SanitizeString(query)

	if r := []rune(query); len(r) > MaxQueryLength {
		query = strings.TrimSpace(string(r[:MaxQueryLength]))
	}
	return query
}

// SanitizeURL returns the normalized form of an http(s) URL, or "" when
// rawURL is not one.
func SanitizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ""
	}
	if parsedURL.Host == "" {
		return ""
	}

	return parsedURL.String()
}
