package logger

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

const (
	MaxPathLength  = 500
	MaxEmailLength = 254
)

// SanitizePath strips control characters from a request path and truncates it.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// RequestPath is the path to log for r: the matched chi route pattern when
// there is one, so /reset/{token} never logs the token itself.
func RequestPath(r *http.Request) string {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		path = rctx.RoutePattern()
	}
	return SanitizePath(path)
}

// SanitizeString strips control characters and truncates s to maxLength bytes.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if maxLength > 0 && len(s) > maxLength {
		s = strings.ToValidUTF8(s[:maxLength], "") + "..."
	}
	return s
}
