package validation

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// SanitizeString escapes the HTML-significant characters and forward slash,
// then trims surrounding whitespace.
func SanitizeString(s string) string {
	return strings.TrimSpace(htmlEscaper.Replace(s))
}
