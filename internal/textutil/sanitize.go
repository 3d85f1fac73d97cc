package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxNameLength caps folder names so deeply nested library paths stay inside
// common filesystem limits.
const maxNameLength = 200

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"\x00", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName converts a display name into a safe file or folder name.
// The input is normalized to NFC so the same playlist title always maps to the
// same folder regardless of how the remote service composed its code points.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed; leading/trailing dots and whitespace are trimmed.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	cleaned := strings.Trim(fileNameReplacer.Replace(name), ". ")
	if len(cleaned) > maxNameLength {
		cleaned = strings.TrimRight(cleaned[:maxNameLength], ". ")
	}
	return cleaned
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
