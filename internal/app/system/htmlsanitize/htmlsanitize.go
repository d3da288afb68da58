// Package htmlsanitize guards the free-text fields of the JSON API (recipe
// descriptions and steps, family descriptions).
//
// Values are stored as plain text exactly as submitted, after trimming.
// Markup is rejected rather than rewritten, so "&", quotes and "<3" come
// back unchanged and the stored length is the length that was validated.
package htmlsanitize

import (
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrMarkup is returned for text containing tags, comments or other markup.
var ErrMarkup = errors.New("markup is not allowed")

var strict = bluemonday.StrictPolicy()

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// HasMarkup reports whether the strict policy would remove anything from s.
// Both sides are compared unescaped, so plain "&" or "<3" is not markup.
func HasMarkup(s string) bool {
	s = newlines.Replace(s)
	return html.UnescapeString(strict.Sanitize(s)) != html.UnescapeString(s)
}

// Text trims s and returns it unchanged when it is plain text.
func Text(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if HasMarkup(s) {
		return "", ErrMarkup
	}
	return s, nil
}

// Texts applies Text to each entry and drops entries that are blank.
func Texts(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		v, err := Text(s)
		if err != nil {
			return nil, err
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}
