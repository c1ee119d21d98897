package tokenizer_test

import (
	"context"
	"testing"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
)

func tokenize(t *testing.T, content string) []tokenizer.Token {
	t.Helper()
	doc := document.New("file:///doc.md", 0, content)
	tokens, err := tokenizer.NewMarkdown().Tokenize(context.Background(), doc)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	return tokens
}

func TestAtxHeadings(t *testing.T) {
	tokens := tokenize(t, "# Top\n\ntext\n\n### Deep ###\n")

	var headings []tokenizer.Token
	for _, tok := range tokens {
		if tok.Type == tokenizer.TypeHeadingOpen {
			headings = append(headings, tok)
		}
	}
	if len(headings) != 2 {
		t.Fatalf("got %d headings, want 2", len(headings))
	}
	if headings[0].Markup != "#" || headings[1].Markup != "###" {
		t.Errorf("markups = %q, %q", headings[0].Markup, headings[1].Markup)
	}

	// Trailing hashes are not part of the heading text.
	for i, tok := range tokens {
		if tok.Type == tokenizer.TypeHeadingOpen && tok.Markup == "###" {
			if got := tokens[i+1].Content; got != "Deep" {
				t.Errorf("heading content = %q, want %q", got, "Deep")
			}
		}
	}
}

func TestSetextHeadings(t *testing.T) {
	tokens := tokenize(t, "Title\n===\n\nSection\n---\n")

	var markups []string
	for _, tok := range tokens {
		if tok.Type == tokenizer.TypeHeadingOpen {
			markups = append(markups, tok.Markup)
		}
	}
	if len(markups) != 2 || markups[0] != "=" || markups[1] != "-" {
		t.Fatalf("markups = %v, want [= -]", markups)
	}
}

func TestFenceMap(t *testing.T) {
	tokens := tokenize(t, "para\n\n```go\ncode [link](x.md)\n```\nafter\n")

	for _, tok := range tokens {
		if tok.Type == tokenizer.TypeFence {
			if tok.Map[0] != 2 || tok.Map[1] != 5 {
				t.Errorf("fence map = %v, want [2 5]", tok.Map)
			}
			return
		}
	}
	t.Fatal("no fence token")
}

func TestUnterminatedFenceRunsToEnd(t *testing.T) {
	tokens := tokenize(t, "```\ncode\nmore\n")
	for _, tok := range tokens {
		if tok.Type == tokenizer.TypeFence {
			if tok.Map[1] != 4 {
				t.Errorf("fence end = %d, want 4", tok.Map[1])
			}
			return
		}
	}
	t.Fatal("no fence token")
}

func TestIndentedCodeBlock(t *testing.T) {
	tokens := tokenize(t, "\n    one\n    two\n\npara\n")
	for _, tok := range tokens {
		if tok.Type == tokenizer.TypeCodeBlock {
			if tok.Map[0] != 1 || tok.Map[1] != 3 {
				t.Errorf("code block map = %v, want [1 3]", tok.Map)
			}
			return
		}
	}
	t.Fatal("no code_block token")
}

func TestHTMLBlock(t *testing.T) {
	tokens := tokenize(t, "<div>\n[not a link](x.md)\n</div>\n\ntext\n")
	for _, tok := range tokens {
		if tok.Type == tokenizer.TypeHTMLBlock {
			if tok.Map[0] != 0 || tok.Map[1] != 3 {
				t.Errorf("html block map = %v, want [0 3]", tok.Map)
			}
			return
		}
	}
	t.Fatal("no html_block token")
}

func TestFrontMatter(t *testing.T) {
	tokens := tokenize(t, "---\ntitle: x\n---\n# Head\n")
	if len(tokens) == 0 || tokens[0].Type != tokenizer.TypeFrontMatter {
		t.Fatalf("first token = %+v, want front_matter", tokens)
	}
	if tokens[0].Map[1] != 3 {
		t.Errorf("front matter end = %d, want 3", tokens[0].Map[1])
	}
}

func TestHeadingInlineCode(t *testing.T) {
	tokens := tokenize(t, "# Use `go build` now\n")
	for _, tok := range tokens {
		if tok.Type != tokenizer.TypeInline {
			continue
		}
		if len(tok.Children) != 3 {
			t.Fatalf("children = %+v, want text/code/text", tok.Children)
		}
		if tok.Children[1].Type != tokenizer.TypeCodeInline || tok.Children[1].Content != "go build" {
			t.Errorf("code child = %+v", tok.Children[1])
		}
		return
	}
	t.Fatal("no inline token")
}

func TestPlainTextHasNoTokens(t *testing.T) {
	if tokens := tokenize(t, "just a paragraph\nwith two lines\n"); len(tokens) != 0 {
		t.Errorf("tokens = %+v, want none", tokens)
	}
}
