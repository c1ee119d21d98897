package links

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LinkKind distinguishes usages from definitions.
type LinkKind int

const (
	// KindLink covers inline links, reference links and autolinks.
	KindLink LinkKind = iota
	// KindDefinition is a `[ref]: target` declaration.
	KindDefinition
)

// Source records where a link was written. All ranges are derived from the
// document text at computation time and must not outlive a version change.
type Source struct {
	// Range spans the entire link construct.
	Range protocol.Range
	// TargetRange spans the destination plus any title, without the
	// enclosing parentheses.
	TargetRange protocol.Range
	// HrefText is the raw destination as written, without angle brackets.
	HrefText string
	// PathText is HrefText up to (not including) any '#'.
	PathText string
	// HrefRange spans exactly HrefText.
	HrefRange protocol.Range
	// FragmentRange spans the fragment inside HrefRange when a '#' is
	// present.
	FragmentRange *protocol.Range
}

// Link is one extracted link or definition.
type Link struct {
	Kind   LinkKind
	Href   Href
	Source Source

	// RefName and RefRange are set for KindDefinition.
	RefName  string
	RefRange protocol.Range
}

// DefinitionSet maps reference names, case-sensitive as written, to their
// last-declared definition within one document.
type DefinitionSet map[string]Link

// Lookup returns the definition for name, if declared.
func (s DefinitionSet) Lookup(name string) (Link, bool) {
	def, ok := s[name]
	return def, ok
}

// NewDefinitionSet collects every definition from a link sequence; later
// definitions overwrite earlier ones with the same name.
func NewDefinitionSet(all []Link) DefinitionSet {
	set := make(DefinitionSet)
	for _, link := range all {
		if link.Kind == KindDefinition {
			set[link.RefName] = link
		}
	}
	return set
}
