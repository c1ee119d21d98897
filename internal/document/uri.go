package document

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// markdownExtensions lists the file extensions treated as markdown, in
// preference order for extension probing.
var markdownExtensions = []string{".md", ".mkd", ".mdx", ".markdown"}

var ErrInvalidURI = fmt.Errorf("invalid document uri")

// FromPath builds a file URI from an absolute filesystem path.
func FromPath(absolute string) protocol.DocumentUri {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(filepath.Clean(absolute)),
	}
	return protocol.DocumentUri(u.String())
}

// ToPath extracts the filesystem path from a file URI.
func ToPath(uri protocol.DocumentUri) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: not a file uri: %s", ErrInvalidURI, uri)
	}
	return filepath.FromSlash(u.Path), nil
}

// Scheme returns the URI scheme, or "" when the URI cannot be parsed.
func Scheme(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil {
		return ""
	}
	return u.Scheme
}

// IsUntitled reports whether the document only lives in the editor.
func IsUntitled(uri protocol.DocumentUri) bool {
	return Scheme(uri) == "untitled"
}

// Dir returns the URI of the directory containing the given resource.
func Dir(uri protocol.DocumentUri) protocol.DocumentUri {
	u, err := url.Parse(string(uri))
	if err != nil {
		return uri
	}
	u.Path = path.Dir(u.Path)
	u.Fragment = ""
	u.RawQuery = ""
	return protocol.DocumentUri(u.String())
}

// Join resolves a slash-separated relative path against a base URI.
func Join(base protocol.DocumentUri, rel string) (protocol.DocumentUri, error) {
	u, err := url.Parse(string(base))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	u.Path = path.Join(u.Path, rel)
	u.Fragment = ""
	u.RawQuery = ""
	return protocol.DocumentUri(u.String()), nil
}

// WithPath replaces the path component of a URI, keeping scheme and host.
func WithPath(base protocol.DocumentUri, p string) (protocol.DocumentUri, error) {
	u, err := url.Parse(string(base))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	u.Path = path.Clean("/" + p)
	u.Fragment = ""
	u.RawQuery = ""
	return protocol.DocumentUri(u.String()), nil
}

// SplitFragment splits raw link text into its path part and fragment. The
// fragment does not include the leading '#'. hasFragment distinguishes an
// empty fragment ("doc.md#") from no fragment at all.
func SplitFragment(text string) (pathText, fragment string, hasFragment bool) {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		return text[:i], text[i+1:], true
	}
	return text, "", false
}

// IsMarkdown reports whether the URI path carries a recognized markdown
// extension.
func IsMarkdown(uri protocol.DocumentUri) bool {
	u, err := url.Parse(string(uri))
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, known := range markdownExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// WithMarkdownExtension appends the primary markdown extension to the URI
// path. Used when probing "[text](page)" style links for "page.md".
func WithMarkdownExtension(uri protocol.DocumentUri) protocol.DocumentUri {
	return uri + protocol.DocumentUri(markdownExtensions[0])
}
