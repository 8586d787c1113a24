// Package utils provides utility functions used throughout the application.
package utils

import (
	"net"
	"net/http"
	"strings"
)

// TruncateString shortens s to maxLen runes, appending "..." when cut.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// GetRequestIP returns the client address, honouring X-Forwarded-For.
func GetRequestIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}

	// First hop wins when several proxies appended themselves
	if first, _, found := strings.Cut(ip, ","); found {
		ip = strings.TrimSpace(first)
	}

	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
