package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/graphview"
)

func (s *Server) textDocumentDocumentLink(
	glspCtx *glsp.Context,
	params *protocol.DocumentLinkParams,
) ([]protocol.DocumentLink, error) {
	s.rememberNotifier(glspCtx.Notify)
	doc, err := s.ws.OpenMarkdownDocument(context.Background(), params.TextDocument.URI)
	if err != nil || doc == nil {
		return nil, err
	}
	return s.links.ProvideDocumentLinks(context.Background(), doc)
}

func (s *Server) documentLinkResolve(
	glspCtx *glsp.Context,
	params *protocol.DocumentLink,
) (*protocol.DocumentLink, error) {
	resolved, err := s.links.ResolveDocumentLink(context.Background(), *params)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return params, nil
	}
	return resolved, nil
}

func (s *Server) textDocumentDocumentSymbol(
	glspCtx *glsp.Context,
	params *protocol.DocumentSymbolParams,
) (any, error) {
	doc, err := s.ws.OpenMarkdownDocument(context.Background(), params.TextDocument.URI)
	if err != nil || doc == nil {
		return nil, err
	}
	contents, err := s.tocs.GetForDocument(context.Background(), doc)
	if err != nil {
		return nil, err
	}

	// Nest symbols by heading level.
	var roots []*symbolNode
	var stack []*symbolNode
	for _, entry := range contents.Entries {
		node := &symbolNode{
			level: entry.Level,
			symbol: protocol.DocumentSymbol{
				Name:           entry.Text,
				Kind:           protocol.SymbolKindString,
				Range:          entry.SectionRange,
				SelectionRange: entry.HeaderTextRange,
			},
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= entry.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, node)
		}
		stack = append(stack, node)
	}
	return flattenSymbols(roots), nil
}

type symbolNode struct {
	symbol   protocol.DocumentSymbol
	level    int
	children []*symbolNode
}

func flattenSymbols(nodes []*symbolNode) []protocol.DocumentSymbol {
	symbols := make([]protocol.DocumentSymbol, 0, len(nodes))
	for _, node := range nodes {
		node.symbol.Children = flattenSymbols(node.children)
		symbols = append(symbols, node.symbol)
	}
	return symbols
}

func (s *Server) workspaceSymbol(
	glspCtx *glsp.Context,
	params *protocol.WorkspaceSymbolParams,
) ([]protocol.SymbolInformation, error) {
	entries, err := s.wsTocs.Entries(context.Background())
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(params.Query)
	var symbols []protocol.SymbolInformation
	for _, entry := range entries {
		if entry.Value == nil {
			continue
		}
		for _, heading := range entry.Value.Entries {
			if query != "" && !strings.Contains(strings.ToLower(heading.Text), query) {
				continue
			}
			symbols = append(symbols, protocol.SymbolInformation{
				Name: heading.Text,
				Kind: protocol.SymbolKindString,
				Location: protocol.Location{
					URI:   heading.URI,
					Range: heading.HeaderRange,
				},
			})
		}
	}
	return symbols, nil
}

// textDocumentReferences reports every stored link pointing at the current
// document, i.e. its backlinks.
func (s *Server) textDocumentReferences(
	glspCtx *glsp.Context,
	params *protocol.ReferenceParams,
) ([]protocol.Location, error) {
	backlinks, err := s.idx.Backlinks(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	locations := make([]protocol.Location, 0, len(backlinks))
	for _, back := range backlinks {
		locations = append(locations, protocol.Location{URI: back.URI, Range: back.Range})
	}
	return locations, nil
}

func (s *Server) workspaceExecuteCommand(
	glspCtx *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	switch params.Command {
	case CommandGraph:
		if s.graphURL != "" {
			return s.graphURL, nil
		}
		if s.graph == nil {
			s.graph = graphview.New(s.idx, s.ws)
		}
		url, err := s.graph.Start(":0")
		if err != nil {
			return nil, err
		}
		s.graphURL = url
		return url, nil
	default:
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
}
