// Package links extracts every link-like construct from markdown text and
// resolves link targets across the workspace.
package links

import (
	"net/url"
	"regexp"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// HrefKind discriminates the three target classes a link can carry.
type HrefKind int

const (
	// HrefExternal is an absolute URI with an explicit scheme.
	HrefExternal HrefKind = iota
	// HrefInternal is a workspace file or directory plus an optional
	// fragment.
	HrefInternal
	// HrefReference names a link definition resolved within the same
	// document.
	HrefReference
)

// Href is the classified target of a link.
type Href struct {
	Kind HrefKind

	// External is set for HrefExternal.
	External *url.URL

	// Path and Fragment are set for HrefInternal. Path never carries a
	// fragment of its own.
	Path     protocol.DocumentUri
	Fragment string

	// Reference is set for HrefReference.
	Reference string
}

// schemePattern classifies a target as external. Only letters and hyphens
// may appear in the scheme, so "user@host.com" stays unmatched.
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\-]*:`)

// hrefResolver classifies raw link targets for one source document.
type hrefResolver struct {
	ws workspace.Workspace
}

// create classifies raw link text into an Href. ok is false when the target
// is malformed or cannot be anchored anywhere; such links are dropped.
func (r hrefResolver) create(source protocol.DocumentUri, text string) (Href, bool) {
	if text == "" {
		return Href{}, false
	}

	if schemePattern.MatchString(text) {
		external, err := url.Parse(text)
		if err != nil {
			return Href{}, false
		}
		return Href{Kind: HrefExternal, External: external}, true
	}

	pathText, fragment, _ := document.SplitFragment(text)
	decoded, err := url.PathUnescape(pathText)
	if err != nil {
		return Href{}, false
	}

	// A bare fragment points into the source document itself.
	if decoded == "" {
		return Href{Kind: HrefInternal, Path: stripFragment(source), Fragment: fragment}, true
	}

	var target protocol.DocumentUri
	switch {
	case strings.HasPrefix(decoded, "/"):
		root, ok := r.rootFor(source)
		if !ok {
			return Href{}, false
		}
		target, err = document.Join(root, decoded)
	default:
		target, err = document.Join(r.baseFor(source), decoded)
	}
	if err != nil {
		return Href{}, false
	}
	return Href{Kind: HrefInternal, Path: target, Fragment: fragment}, true
}

// rootFor returns the workspace folder absolute paths resolve against.
func (r hrefResolver) rootFor(source protocol.DocumentUri) (protocol.DocumentUri, bool) {
	folders := r.ws.WorkspaceFolders()
	if len(folders) == 0 {
		return "", false
	}
	return folders[0], true
}

// baseFor returns the directory relative paths resolve against. Untitled
// documents resolve against their containing context when one exists, and
// the workspace root otherwise.
func (r hrefResolver) baseFor(source protocol.DocumentUri) protocol.DocumentUri {
	if document.IsUntitled(source) {
		if container, ok := r.ws.GetContainingDocument(source); ok {
			return document.Dir(container.URI)
		}
		if root, ok := r.rootFor(source); ok {
			return root
		}
	}
	return document.Dir(source)
}

func stripFragment(uri protocol.DocumentUri) protocol.DocumentUri {
	stripped, _, _ := document.SplitFragment(string(uri))
	return protocol.DocumentUri(stripped)
}
