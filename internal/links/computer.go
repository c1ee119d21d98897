package links

import (
	"context"
	"regexp"
	"strings"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// Computer extracts links from a single document. It is stateless; callers
// wanting caching wrap it in a Provider.
type Computer struct {
	tok tokenizer.Tokenizer
	ws  workspace.Workspace
}

func NewComputer(tok tokenizer.Tokenizer, ws workspace.Workspace) *Computer {
	return &Computer{tok: tok, ws: ws}
}

var (
	autolinkPattern = regexp.MustCompile(`<([a-zA-Z][a-zA-Z\-]*:[^<>\s]+)>`)
	definitionStart = regexp.MustCompile(`^( {0,3})\[((?:\\.|[^\[\]\\])+)\]:\s*(.*)$`)
	listMarkerOnly  = regexp.MustCompile(`^[ \t]*(?:[-*+]|\d+[.)])[ \t]+$`)
)

// GetAllLinks returns every link in doc ordered by category: inline links
// (with links nested in their labels), reference links, autolinks, then
// definitions. Cancellation is checked once after tokenization; an already
// cancelled context yields an empty result.
func (c *Computer) GetAllLinks(ctx context.Context, doc document.Document) ([]Link, error) {
	tokens, err := c.tok.Tokenize(ctx, doc)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, nil
	}

	mem := document.AsInMemory(doc)
	text := mem.Content()
	regions := computeNoLinkRegions(mem, tokens, text)
	resolver := hrefResolver{ws: c.ws}

	var inline []Link
	c.scanInlineLinks(mem, resolver, regions, text, 0, &inline)
	// Consumed inline links block reference-style matches inside their text.
	for _, span := range regions.pendingSpans {
		regions.addSpan(span[0], span[1])
	}
	regions.pendingSpans = nil

	reference := c.scanReferenceLinks(mem, regions, text)
	autolinks := c.scanAutolinks(mem, resolver, regions, text)
	definitions := c.scanDefinitions(mem, resolver, regions)

	all := make([]Link, 0, len(inline)+len(reference)+len(autolinks)+len(definitions))
	all = append(all, inline...)
	all = append(all, reference...)
	all = append(all, autolinks...)
	all = append(all, definitions...)
	return all, nil
}

// scanInlineLinks finds [text](target "title") links in text, which starts
// at byte offset base of the document. Each match's label is re-scanned for
// nested links.
func (c *Computer) scanInlineLinks(doc *document.InMemory, resolver hrefResolver, regions *noLinkRegions, text string, base int, out *[]Link) {
	i := 0
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
			continue
		case '[':
		default:
			i++
			continue
		}

		labelStart := i
		fullStart := labelStart
		if labelStart > 0 && text[labelStart-1] == '!' {
			fullStart = labelStart - 1
		}

		labelEnd := matchBrackets(text, labelStart)
		if labelEnd < 0 || labelEnd+1 >= len(text) || text[labelEnd+1] != '(' {
			i++
			continue
		}

		dest, destEnd, closeParen := parseDestination(text, labelEnd+2)
		if closeParen < 0 {
			i++
			continue
		}

		if !regions.excludes(base+fullStart) && !regions.excludes(base+dest.start) {
			hrefText := text[dest.start:destEnd]
			if href, ok := resolver.create(doc.URI(), hrefText); ok {
				link := Link{
					Kind:   KindLink,
					Href:   href,
					Source: newSource(doc, base+fullStart, base+closeParen+1, base+labelEnd+2, base+closeParen, base+dest.start, base+destEnd, hrefText),
				}
				*out = append(*out, link)
				regions.pendingSpans = append(regions.pendingSpans, [2]int{base + fullStart, base + closeParen + 1})
			}
		}

		// Surface links nested inside this link's own label text.
		c.scanInlineLinks(doc, resolver, regions, text[labelStart+1:labelEnd], base+labelStart+1, out)

		i = closeParen + 1
	}
}

// scanReferenceLinks finds [text][ref], [ref][] and bare [ref] shorthands.
func (c *Computer) scanReferenceLinks(doc *document.InMemory, regions *noLinkRegions, text string) []Link {
	var out []Link
	i := 0
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
			continue
		case '[':
		default:
			i++
			continue
		}

		labelStart := i
		fullStart := labelStart
		if labelStart > 0 && text[labelStart-1] == '!' {
			fullStart = labelStart - 1
		}

		labelEnd := matchBrackets(text, labelStart)
		if labelEnd < 0 {
			i++
			continue
		}
		label := text[labelStart+1 : labelEnd]

		if regions.excludes(fullStart) || regions.excludes(labelEnd) {
			i = labelStart + 1
			continue
		}

		refName := label
		refStart, refEnd := labelStart+1, labelEnd
		fullEnd := labelEnd + 1

		next := byte(0)
		if labelEnd+1 < len(text) {
			next = text[labelEnd+1]
		}
		switch next {
		case '(', ':':
			// Inline link or definition, handled by their own scans.
			i = labelEnd + 1
			continue
		case '[':
			secondEnd := matchBrackets(text, labelEnd+1)
			if secondEnd < 0 {
				i = labelEnd + 1
				continue
			}
			second := strings.TrimSpace(text[labelEnd+2 : secondEnd])
			if second != "" {
				refName = second
				refStart, refEnd = labelEnd+2, secondEnd
			}
			fullEnd = secondEnd + 1
		default:
			// Bare [ref] shorthand. A task-list checkbox right after a list
			// marker is not a reference.
			if isCheckbox(label) && atListMarker(doc, text, labelStart) {
				i = labelEnd + 1
				continue
			}
		}

		if strings.TrimSpace(refName) == "" || strings.ContainsAny(refName, "\n") {
			i = labelEnd + 1
			continue
		}

		out = append(out, Link{
			Kind: KindLink,
			Href: Href{Kind: HrefReference, Reference: refName},
			Source: Source{
				Range:       doc.RangeOf(fullStart, fullEnd),
				TargetRange: doc.RangeOf(refStart, refEnd),
				HrefText:    refName,
				PathText:    refName,
				HrefRange:   doc.RangeOf(refStart, refEnd),
			},
		})
		i = fullEnd
	}
	return out
}

func (c *Computer) scanAutolinks(doc *document.InMemory, resolver hrefResolver, regions *noLinkRegions, text string) []Link {
	var out []Link
	for _, m := range autolinkPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		innerStart, innerEnd := m[2], m[3]
		if regions.excludes(start) {
			continue
		}
		hrefText := text[innerStart:innerEnd]
		href, ok := resolver.create(doc.URI(), hrefText)
		if !ok || href.Kind != HrefExternal {
			continue
		}
		out = append(out, Link{
			Kind:   KindLink,
			Href:   href,
			Source: newSource(doc, start, end, innerStart, innerEnd, innerStart, innerEnd, hrefText),
		})
	}
	return out
}

// scanDefinitions finds `[ref]: target` declarations. Definitions bypass
// the inline-code span set but are still excluded inside multi-line no-link
// blocks.
func (c *Computer) scanDefinitions(doc *document.InMemory, resolver hrefResolver, regions *noLinkRegions) []Link {
	var out []Link
	offset := 0
	content := doc.Content()
	for line := 0; line < doc.LineCount(); line++ {
		lineText := doc.LineText(line)
		lineStart := offset
		offset += len(lineText)
		if offset < len(content) {
			// Account for the newline (and a carriage return, if any).
			if content[offset] == '\r' {
				offset++
			}
			if offset < len(content) && content[offset] == '\n' {
				offset++
			}
		}

		if regions.excludesLine(line) {
			continue
		}
		m := definitionStart.FindStringSubmatchIndex(lineText)
		if m == nil {
			continue
		}
		refStart, refEnd := m[4], m[5]
		rest := lineText[m[6]:]
		targetText, targetOff := parseDefinitionTarget(rest)
		if targetText == "" {
			continue
		}
		targetStart := lineStart + m[6] + targetOff
		targetEnd := targetStart + len(targetText)

		hrefText := strings.Trim(targetText, "<>")
		if strings.HasPrefix(targetText, "<") {
			targetStart++
			targetEnd = targetStart + len(hrefText)
		}
		href, ok := resolver.create(doc.URI(), hrefText)
		if !ok || href.Kind == HrefReference {
			continue
		}
		out = append(out, Link{
			Kind:     KindDefinition,
			Href:     href,
			Source:   newSource(doc, lineStart+m[2], lineStart+len(lineText), targetStart, lineStart+len(lineText), targetStart, targetEnd, hrefText),
			RefName:  lineText[refStart:refEnd],
			RefRange: doc.RangeOf(lineStart+refStart, lineStart+refEnd),
		})
	}
	return out
}

// parseDefinitionTarget extracts the destination from the text after the
// colon: either <bracketed> or the first whitespace-delimited token.
func parseDefinitionTarget(rest string) (string, int) {
	trimmed := strings.TrimLeft(rest, " \t")
	off := len(rest) - len(trimmed)
	if trimmed == "" {
		return "", 0
	}
	if trimmed[0] == '<' {
		if end := strings.IndexByte(trimmed, '>'); end > 0 {
			return trimmed[:end+1], off
		}
		return "", 0
	}
	end := strings.IndexAny(trimmed, " \t")
	if end < 0 {
		end = len(trimmed)
	}
	return trimmed[:end], off
}

// newSource builds a Source from byte offsets, deriving the path text and
// fragment range from the raw href.
func newSource(doc *document.InMemory, fullStart, fullEnd, targetStart, targetEnd, hrefStart, hrefEnd int, hrefText string) Source {
	pathText, _, hasFragment := document.SplitFragment(hrefText)
	src := Source{
		Range:       doc.RangeOf(fullStart, fullEnd),
		TargetRange: doc.RangeOf(targetStart, targetEnd),
		HrefText:    hrefText,
		PathText:    pathText,
		HrefRange:   doc.RangeOf(hrefStart, hrefEnd),
	}
	if hasFragment {
		fragRange := doc.RangeOf(hrefStart+len(pathText)+1, hrefEnd)
		src.FragmentRange = &fragRange
	}
	return src
}

// matchBrackets returns the index of the ']' matching the '[' at open,
// honoring escapes and nested balanced brackets, or -1.
func matchBrackets(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type destSpan struct{ start int }

// parseDestination parses a link destination starting right after '(',
// returning the destination span and the index of the closing ')'.
func parseDestination(text string, from int) (destSpan, int, int) {
	i := from
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n') {
		i++
	}
	if i >= len(text) {
		return destSpan{}, 0, -1
	}

	var destStart, destEnd int
	if text[i] == '<' {
		destStart = i + 1
		end := strings.IndexByte(text[destStart:], '>')
		if end < 0 {
			return destSpan{}, 0, -1
		}
		destEnd = destStart + end
		i = destEnd + 1
	} else {
		destStart = i
		depth := 1
		for i < len(text) {
			ch := text[i]
			if ch == '\\' {
				i += 2
				continue
			}
			if ch == '(' {
				depth++
			} else if ch == ')' {
				depth--
				if depth == 0 {
					break
				}
			} else if ch == ' ' || ch == '\t' || ch == '\n' {
				break
			}
			i++
		}
		if i > len(text) {
			return destSpan{}, 0, -1
		}
		destEnd = i
	}

	// Optional title, then the closing paren.
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n') {
		i++
	}
	if i < len(text) && (text[i] == '"' || text[i] == '\'') {
		quote := text[i]
		i++
		for i < len(text) && text[i] != quote {
			if text[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(text) {
			return destSpan{}, 0, -1
		}
		i++
		for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n') {
			i++
		}
	}
	if i >= len(text) || text[i] != ')' {
		return destSpan{}, 0, -1
	}
	return destSpan{start: destStart}, destEnd, i
}

func isCheckbox(label string) bool {
	return label == "x" || label == "X" || label == " "
}

// atListMarker reports whether everything on the line before offset is just
// a list marker, i.e. the bracket starts a task checkbox.
func atListMarker(doc *document.InMemory, text string, offset int) bool {
	lineStart := offset
	for lineStart > 0 && text[lineStart-1] != '\n' {
		lineStart--
	}
	return listMarkerOnly.MatchString(text[lineStart:offset])
}

// noLinkRegions tracks source spans where link syntax is not recognized:
// code blocks, fences and HTML blocks by line, inline code spans and
// already-consumed inline links by byte range.
type noLinkRegions struct {
	doc   *document.InMemory
	lines map[int]struct{}
	spans [][2]int

	// pendingSpans holds inline-link spans found in the current pass; they
	// only take effect for subsequent passes.
	pendingSpans [][2]int
}

func computeNoLinkRegions(doc *document.InMemory, tokens []tokenizer.Token, text string) *noLinkRegions {
	r := &noLinkRegions{doc: doc, lines: make(map[int]struct{})}
	for _, tok := range tokens {
		switch tok.Type {
		case tokenizer.TypeFence, tokenizer.TypeCodeBlock, tokenizer.TypeHTMLBlock, tokenizer.TypeFrontMatter:
			for line := tok.Map[0]; line < tok.Map[1]; line++ {
				r.lines[line] = struct{}{}
			}
		}
	}
	r.addInlineCodeSpans(text)
	return r
}

// addInlineCodeSpans re-scans raw text for backtick code spans so their
// exact byte ranges exclude link matches.
func (r *noLinkRegions) addInlineCodeSpans(text string) {
	i := 0
	for i < len(text) {
		if text[i] == '\\' {
			i += 2
			continue
		}
		if text[i] != '`' {
			i++
			continue
		}
		runStart := i
		for i < len(text) && text[i] == '`' {
			i++
		}
		run := i - runStart
		close := findClosingBacktickRun(text, i, run)
		if close < 0 {
			continue
		}
		r.addSpan(runStart, close+run)
		i = close + run
	}
}

func findClosingBacktickRun(text string, from, run int) int {
	for i := from; i < len(text); i++ {
		if text[i] != '`' {
			continue
		}
		start := i
		for i < len(text) && text[i] == '`' {
			i++
		}
		if i-start == run {
			return start
		}
	}
	return -1
}

func (r *noLinkRegions) addSpan(start, end int) {
	r.spans = append(r.spans, [2]int{start, end})
}

// excludes reports whether the byte offset falls inside any no-link region.
func (r *noLinkRegions) excludes(offset int) bool {
	line := int(r.doc.PositionAt(offset).Line)
	if _, ok := r.lines[line]; ok {
		return true
	}
	for _, span := range r.spans {
		if offset >= span[0] && offset < span[1] {
			return true
		}
	}
	return false
}

func (r *noLinkRegions) excludesLine(line int) bool {
	_, ok := r.lines[line]
	return ok
}
