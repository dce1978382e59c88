package dmx

import (
	"strings"
	"unicode"
)

// Slug derives an on-disk file-name stem from a project name: spaces become underscores,
// ASCII alphanumerics are lowercased, literal underscores are preserved verbatim, every
// other rune is dropped, and the result is trimmed of any leading/trailing underscore run.
//
// Consecutive-underscore handling: internal runs are preserved exactly as typed (never
// collapsed), only the outermost
// leading/trailing run is stripped. Slug("My Project 7 ") == "my_project_7" and
// Slug(" __a__b__ ") == "a__b" are both satisfied by this rule.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '_':
			b.WriteByte('_')
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			// dropped
		}
	}

	return strings.Trim(b.String(), "_")
}
