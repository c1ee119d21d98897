// Package diagnostics validates link targets and keeps the results fresh
// across workspace changes without redundant filesystem work.
package diagnostics

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/links"
)

// Severity controls whether a validation class runs and how its findings
// are reported. The zero value means "not configured".
type Severity string

const (
	SeverityUnset   Severity = ""
	SeverityOff     Severity = "off"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) enabled() bool {
	return s == SeverityWarning || s == SeverityError
}

func (s Severity) protocol() protocol.DiagnosticSeverity {
	if s == SeverityError {
		return protocol.DiagnosticSeverityError
	}
	return protocol.DiagnosticSeverityWarning
}

// Options selects which link validations run.
type Options struct {
	// IgnoreLinks holds glob patterns matched against the raw href text.
	// Entries starting with '#' apply only to a document's own fragment
	// links.
	IgnoreLinks []string

	ValidateFileLinks     Severity
	ValidateFragmentLinks Severity
	ValidateReferences    Severity

	// ValidateMarkdownFileLinkFragments covers fragments on links into other
	// markdown files. Unset inherits ValidateFragmentLinks.
	ValidateMarkdownFileLinkFragments Severity
}

// DefaultOptions enables every validation class at warning severity.
func DefaultOptions() Options {
	return Options{
		ValidateFileLinks:     SeverityWarning,
		ValidateFragmentLinks: SeverityWarning,
		ValidateReferences:    SeverityWarning,
	}
}

func (o Options) fileLinkFragmentSeverity() Severity {
	if o.ValidateMarkdownFileLinkFragments != SeverityUnset {
		return o.ValidateMarkdownFileLinkFragments
	}
	return o.ValidateFragmentLinks
}

// ignores reports whether a link is excluded from validation by the
// configured glob patterns.
func (o Options) ignores(source links.Source, fragment string) bool {
	for _, pattern := range o.IgnoreLinks {
		if strings.HasPrefix(pattern, "#") {
			// Fragment-only patterns apply to same-document fragment links.
			if source.PathText == "" && globMatch(pattern, "#"+fragment) {
				return true
			}
			continue
		}
		if globMatch(pattern, source.PathText) || globMatch(pattern, source.HrefText) {
			return true
		}
	}
	return false
}

func globMatch(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

// equal compares two option sets; the manager uses it to decide whether a
// cached validation can be reused.
func (o Options) equal(other Options) bool {
	if o.ValidateFileLinks != other.ValidateFileLinks ||
		o.ValidateFragmentLinks != other.ValidateFragmentLinks ||
		o.ValidateReferences != other.ValidateReferences ||
		o.ValidateMarkdownFileLinkFragments != other.ValidateMarkdownFileLinkFragments ||
		len(o.IgnoreLinks) != len(other.IgnoreLinks) {
		return false
	}
	for i := range o.IgnoreLinks {
		if o.IgnoreLinks[i] != other.IgnoreLinks[i] {
			return false
		}
	}
	return true
}
