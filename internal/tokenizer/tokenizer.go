// Package tokenizer defines the token stream contract consumed by the table
// of contents builder and the link computer, together with the default
// markdown block tokenizer.
package tokenizer

import (
	"context"

	"github.com/CamdenClark/zett-languageservice/internal/document"
)

// Token kinds produced by the default tokenizer. Only block structure and
// heading inlines are modeled; inline code spans are re-scanned from raw
// text by consumers that need exact ranges.
const (
	TypeHeadingOpen  = "heading_open"
	TypeHeadingClose = "heading_close"
	TypeInline       = "inline"
	TypeText         = "text"
	TypeCodeInline   = "code_inline"
	TypeFence        = "fence"
	TypeCodeBlock    = "code_block"
	TypeHTMLBlock    = "html_block"
	TypeFrontMatter  = "front_matter"
)

// Token is one element of a document's block token stream.
type Token struct {
	// Type is one of the Type* constants.
	Type string
	// Markup carries the syntax that introduced the token: "#"-runs for ATX
	// headings, "=" or "-" for setext headings, the fence string for fences.
	Markup string
	// Content is the raw text for inline and child tokens.
	Content string
	// Map is the [startLine, endLineExclusive) block extent, nil for child
	// tokens that have no block-level position.
	Map []int
	// Children holds the inline tokens of an inline container.
	Children []Token
}

// Tokenizer turns a document into its block token stream.
type Tokenizer interface {
	Tokenize(ctx context.Context, doc document.Document) ([]Token, error)
}
