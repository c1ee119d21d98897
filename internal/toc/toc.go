// Package toc builds document outlines: ordered heading entries with
// hierarchical section ranges and collision-free anchors.
package toc

import (
	"context"
	"strconv"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/slug"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// Entry is one heading in a table of contents.
type Entry struct {
	// URI owns the heading; for concatenated notebook outlines entries point
	// into different cells.
	URI protocol.DocumentUri
	// Slug is the unique anchor for this heading.
	Slug slug.Slug
	// Text is the heading's plain text.
	Text string
	// Level is 1 for top-level headings.
	Level int
	// Line is the 0-based source line of the heading.
	Line int
	// SectionRange spans from the heading line to just before the next
	// heading of equal or lesser level, or document end.
	SectionRange protocol.Range
	// HeaderRange spans the heading line(s) themselves.
	HeaderRange protocol.Range
	// HeaderTextRange spans only the heading's text.
	HeaderTextRange protocol.Range
}

// TableOfContents is an immutable ordered outline.
type TableOfContents struct {
	Entries []Entry
}

// Empty is the outline of a document that cannot be loaded.
var Empty = &TableOfContents{}

// Lookup finds the entry whose slug matches the given fragment.
func (t *TableOfContents) Lookup(fragment string, slugifier slug.Slugifier) (Entry, bool) {
	wanted := slugifier.FromHeading(fragment)
	for _, entry := range t.Entries {
		if entry.Slug.Equals(wanted) {
			return entry, true
		}
	}
	// Fragments copied from rendered anchors arrive pre-slugged; compare
	// them verbatim as well.
	for _, entry := range t.Entries {
		if entry.Slug.Value == fragment {
			return entry, true
		}
	}
	return Entry{}, false
}

// Builder computes outlines. It is stateless.
type Builder struct {
	tok       tokenizer.Tokenizer
	slugifier slug.Slugifier
	ws        workspace.Workspace
}

func NewBuilder(tok tokenizer.Tokenizer, slugifier slug.Slugifier, ws workspace.Workspace) *Builder {
	return &Builder{tok: tok, slugifier: slugifier, ws: ws}
}

// Build computes the outline for doc. For a containing document the outline
// is the concatenation of its children's outlines in sequence order.
func (b *Builder) Build(ctx context.Context, doc document.Document) (*TableOfContents, error) {
	if container, ok := b.ws.GetContainingDocument(doc.URI()); ok && container.URI == doc.URI() {
		return b.buildForContainer(ctx, container)
	}
	counters := make(map[string]int)
	entries, err := b.buildSingle(ctx, document.AsInMemory(doc), counters)
	if err != nil {
		return nil, err
	}
	return &TableOfContents{Entries: entries}, nil
}

func (b *Builder) buildForContainer(ctx context.Context, container workspace.ContainingDocument) (*TableOfContents, error) {
	var entries []Entry
	counters := make(map[string]int)
	for _, child := range container.Children {
		childDoc, err := b.ws.OpenMarkdownDocument(ctx, child.URI)
		if err != nil {
			return nil, err
		}
		if childDoc == nil {
			continue
		}
		childEntries, err := b.buildSingle(ctx, document.AsInMemory(childDoc), counters)
		if err != nil {
			return nil, err
		}
		entries = append(entries, childEntries...)
	}
	return &TableOfContents{Entries: entries}, nil
}

func (b *Builder) buildSingle(ctx context.Context, doc *document.InMemory, counters map[string]int) ([]Entry, error) {
	tokens, err := b.tok.Tokenize(ctx, doc)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for i := 0; i < len(tokens); i++ {
		open := tokens[i]
		if open.Type != tokenizer.TypeHeadingOpen {
			continue
		}
		var inline tokenizer.Token
		if i+1 < len(tokens) && tokens[i+1].Type == tokenizer.TypeInline {
			inline = tokens[i+1]
		}

		text := plainText(inline)
		base := b.slugifier.FromHeading(text)
		anchor := base
		if n := counters[base.Value]; n > 0 {
			anchor = slug.Slug{Value: base.Value + "-" + strconv.Itoa(n)}
		}
		counters[base.Value]++

		line := open.Map[0]
		entries = append(entries, Entry{
			URI:             doc.URI(),
			Slug:            anchor,
			Text:            text,
			Level:           headingLevel(open.Markup),
			Line:            line,
			HeaderRange:     lineSpanRange(doc, line, open.Map[1]-1),
			HeaderTextRange: headerTextRange(doc, line, inline.Content),
		})
	}

	// Section ranges need the following entries, so fill them in last.
	lastLine := doc.LineCount() - 1
	for i := range entries {
		endLine := lastLine
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Level <= entries[i].Level {
				endLine = entries[j].Line - 1
				break
			}
		}
		entries[i].SectionRange = lineSpanRange(doc, entries[i].Line, endLine)
	}
	return entries, nil
}

// headingLevel derives the level from the heading markup: setext "=" is 1,
// setext "-" is 2, an ATX run is its length.
func headingLevel(markup string) int {
	switch markup {
	case "=":
		return 1
	case "-":
		return 2
	default:
		return len(markup)
	}
}

// plainText flattens the inline children, keeping text, inline code and
// emoji content only.
func plainText(inline tokenizer.Token) string {
	if len(inline.Children) == 0 {
		return strings.TrimSpace(inline.Content)
	}
	var b strings.Builder
	for _, child := range inline.Children {
		switch child.Type {
		case tokenizer.TypeText, tokenizer.TypeCodeInline:
			b.WriteString(child.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

func lineSpanRange(doc *document.InMemory, startLine, endLine int) protocol.Range {
	if endLine < startLine {
		endLine = startLine
	}
	end := doc.LineText(endLine)
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(startLine), Character: 0},
		End:   doc.PositionAt(doc.OffsetAt(protocol.Position{Line: protocol.UInteger(endLine), Character: 0}) + len(end)),
	}
}

// headerTextRange locates the heading text inside its line.
func headerTextRange(doc *document.InMemory, line int, content string) protocol.Range {
	lineText := doc.LineText(line)
	lineStart := doc.OffsetAt(protocol.Position{Line: protocol.UInteger(line), Character: 0})
	idx := strings.Index(lineText, content)
	if content == "" || idx < 0 {
		return lineSpanRange(doc, line, line)
	}
	return doc.RangeOf(lineStart+idx, lineStart+idx+len(content))
}
