// Package slug turns heading text into anchor identifiers. The algorithm is
// pluggable; GitHub is the default and matches what most markdown renderers
// generate for heading anchors.
package slug

import (
	"regexp"
	"strings"
	"unicode"
)

// Slug is a normalized anchor identifier.
type Slug struct {
	Value string
}

func (s Slug) Equals(other Slug) bool {
	return s.Value == other.Value
}

func (s Slug) IsEmpty() bool {
	return s.Value == ""
}

// Slugifier converts heading text to a Slug.
type Slugifier interface {
	FromHeading(text string) Slug
}

var whitespace = regexp.MustCompile(`\s+`)

// GitHub implements the github-style anchor algorithm: trim, lowercase,
// collapse whitespace to hyphens, strip everything that is not a letter,
// number, hyphen or underscore.
type GitHub struct{}

func NewGitHub() GitHub { return GitHub{} }

func (GitHub) FromHeading(text string) Slug {
	value := strings.ToLower(strings.TrimSpace(text))
	value = whitespace.ReplaceAllString(value, "-")
	var b strings.Builder
	for _, r := range value {
		if r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return Slug{Value: b.String()}
}
