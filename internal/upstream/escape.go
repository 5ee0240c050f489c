package upstream

import (
	"net/url"
	"strings"
)

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent escapes s for a single URL path segment the way a browser's
// encodeURIComponent does: only A-Z a-z 0-9 and -_.!~*'() are left as is.
func EscapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
