package tokenizer

import (
	"context"
	"regexp"
	"strings"

	"github.com/CamdenClark/zett-languageservice/internal/document"
)

var (
	atxPattern       = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?[ \t]*$`)
	fenceOpenPattern = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})[ \t]*([^`]*)$")
	setextPattern    = regexp.MustCompile(`^ {0,3}(=+|-+)[ \t]*$`)
	htmlOpenPattern  = regexp.MustCompile(`^ {0,3}<[a-zA-Z!/?]`)
	indentPattern    = regexp.MustCompile(`^(?: {4}|\t)`)
	trailingHashes   = regexp.MustCompile(`[ \t]+#+[ \t]*$`)
)

// Markdown is the default Tokenizer. It is a line-oriented block scanner:
// it recognizes exactly the block structure the outline builder and link
// computer consume (headings, fences, indented code, HTML blocks, front
// matter) and leaves everything else untokenized.
type Markdown struct{}

func NewMarkdown() *Markdown {
	return &Markdown{}
}

func (m *Markdown) Tokenize(ctx context.Context, doc document.Document) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := strings.Split(doc.Content(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	var tokens []Token
	i := 0
	inParagraph := false

	// YAML front matter at the very top of the document.
	if len(lines) > 0 && strings.TrimRight(lines[0], " \t") == "---" {
		for j := 1; j < len(lines); j++ {
			trimmed := strings.TrimRight(lines[j], " \t")
			if trimmed == "---" || trimmed == "..." {
				tokens = append(tokens, Token{Type: TypeFrontMatter, Markup: "---", Map: []int{0, j + 1}})
				i = j + 1
				break
			}
		}
	}

	for i < len(lines) {
		line := lines[i]

		if strings.TrimSpace(line) == "" {
			inParagraph = false
			i++
			continue
		}

		if match := fenceOpenPattern.FindStringSubmatch(line); match != nil {
			end := len(lines)
			marker := match[1]
			for j := i + 1; j < len(lines); j++ {
				closed := strings.TrimSpace(lines[j])
				if strings.HasPrefix(closed, marker[:1]) && strings.Count(closed, marker[:1]) == len(closed) && len(closed) >= len(marker) {
					end = j + 1
					break
				}
			}
			tokens = append(tokens, Token{Type: TypeFence, Markup: marker, Map: []int{i, end}})
			i = end
			inParagraph = false
			continue
		}

		if match := atxPattern.FindStringSubmatch(line); match != nil {
			text := trailingHashes.ReplaceAllString(match[2], "")
			tokens = append(tokens,
				Token{Type: TypeHeadingOpen, Markup: match[1], Map: []int{i, i + 1}},
				Token{Type: TypeInline, Content: text, Map: []int{i, i + 1}, Children: parseInlines(text)},
				Token{Type: TypeHeadingClose, Markup: match[1]},
			)
			i++
			inParagraph = false
			continue
		}

		if !inParagraph && indentPattern.MatchString(line) {
			end := i + 1
			for end < len(lines) && (indentPattern.MatchString(lines[end]) || strings.TrimSpace(lines[end]) == "") {
				end++
			}
			for end > i+1 && strings.TrimSpace(lines[end-1]) == "" {
				end--
			}
			tokens = append(tokens, Token{Type: TypeCodeBlock, Map: []int{i, end}})
			i = end
			continue
		}

		if !inParagraph && htmlOpenPattern.MatchString(line) {
			end := i + 1
			for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
				end++
			}
			tokens = append(tokens, Token{Type: TypeHTMLBlock, Map: []int{i, end}})
			i = end
			continue
		}

		// Setext heading: a paragraph opener followed by an underline.
		if !inParagraph && i+1 < len(lines) {
			if match := setextPattern.FindStringSubmatch(lines[i+1]); match != nil {
				markup := match[1][:1]
				text := strings.TrimSpace(line)
				tokens = append(tokens,
					Token{Type: TypeHeadingOpen, Markup: markup, Map: []int{i, i + 2}},
					Token{Type: TypeInline, Content: text, Map: []int{i, i + 1}, Children: parseInlines(text)},
					Token{Type: TypeHeadingClose, Markup: markup},
				)
				i += 2
				continue
			}
		}

		inParagraph = true
		i++
	}

	return tokens, nil
}

// parseInlines splits heading text into text and inline-code children.
// A backtick run opens a code span closed by a run of the same length.
func parseInlines(text string) []Token {
	var children []Token
	flushFrom := 0
	i := 0
	for i < len(text) {
		if text[i] != '`' {
			i++
			continue
		}
		runStart := i
		for i < len(text) && text[i] == '`' {
			i++
		}
		run := i - runStart
		close := findClosingRun(text, i, run)
		if close < 0 {
			continue
		}
		if runStart > flushFrom {
			children = append(children, Token{Type: TypeText, Content: text[flushFrom:runStart]})
		}
		children = append(children, Token{Type: TypeCodeInline, Content: text[i:close]})
		i = close + run
		flushFrom = i
	}
	if flushFrom < len(text) {
		children = append(children, Token{Type: TypeText, Content: text[flushFrom:]})
	}
	return children
}

// findClosingRun returns the index of a backtick run of exactly length run
// at or after from, or -1.
func findClosingRun(text string, from, run int) int {
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
