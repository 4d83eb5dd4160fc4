package registry

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks (e.g., "Adébáyò" -> "Adebayo")
// so stored names survive systems that choke on combining characters.
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// splitName breaks a full name into first, middle and last parts.
// One token fills first only; two fill first and last; with three or
// more the second token is the middle name and the remainder joins
// into the last name.
func splitName(full string) (first, middle, last string) {
	parts := strings.Fields(removeDiacritics(full))
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], parts[1], strings.Join(parts[2:], " ")
	}
}
