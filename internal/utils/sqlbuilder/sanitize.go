package sqlbuilder

import (
	"regexp"
	"strings"
)

// QuoteChar is the identifier quote used by the target store
const QuoteChar = "`"

var safeIdentifier = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Sanitize makes an identifier safe to interpolate into generated SQL.
// Plain identifiers are returned unchanged; anything else is wrapped in
// backticks with embedded backticks doubled. Data values never go through
// here, they are bound as parameters.
func Sanitize(identifier string) string {
	if safeIdentifier.MatchString(identifier) {
		return identifier
	}
	return QuoteChar + strings.ReplaceAll(identifier, QuoteChar, QuoteChar+QuoteChar) + QuoteChar
}

// SanitizeAll sanitizes each identifier in order.
func SanitizeAll(identifiers []string) []string {
	out := make([]string, len(identifiers))
	for i, id := range identifiers {
		out[i] = Sanitize(id)
	}
	return out
}
