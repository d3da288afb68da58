// Package normalize trims and case-folds user input before it is validated
// or stored.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses inner runs of whitespace.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam trims a query-string value. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Tag lower-cases and trims a recipe tag.
func Tag(s string) string {
	return strings.ToLower(Name(s))
}

// Tags normalizes each tag and drops empties and duplicates, keeping
// first-seen order.
func Tags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = Tag(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Key folds s for case- and diacritic-insensitive matching and search
// (the *_ci fields).
func Key(s string) string {
	return text.Fold(Name(s))
}
