package server

import (
	"context"
	"fmt"
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
)

func (s *Server) textDocumentDidOpen(
	glspCtx *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	s.rememberNotifier(glspCtx.Notify)
	uri := params.TextDocument.URI
	s.ws.OpenDocument(uri, params.TextDocument.Version, params.TextDocument.Text)
	s.publishDiagnostics(glspCtx, uri)
	return nil
}

func (s *Server) textDocumentDidChange(
	glspCtx *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	s.rememberNotifier(glspCtx.Notify)
	uri := params.TextDocument.URI

	doc, err := s.ws.OpenMarkdownDocument(context.Background(), uri)
	if err != nil {
		return err
	}
	content := ""
	if doc != nil {
		content = doc.Content()
	}

	for _, raw := range params.ContentChanges {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			content, err = applyChange(uri, content, change)
			if err != nil {
				return err
			}
		case protocol.TextDocumentContentChangeEventWhole:
			content = change.Text
		default:
			return fmt.Errorf("unexpected change event type %T", raw)
		}
	}

	s.ws.UpdateDocument(uri, params.TextDocument.Version, content)
	s.publishDiagnostics(glspCtx, uri)
	return nil
}

func (s *Server) textDocumentDidSave(
	glspCtx *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	s.rememberNotifier(glspCtx.Notify)
	uri := params.TextDocument.URI
	if params.Text != nil {
		doc, _ := s.ws.OpenMarkdownDocument(context.Background(), uri)
		version := int32(0)
		if doc != nil {
			version = doc.Version()
		}
		s.ws.UpdateDocument(uri, version, *params.Text)
	}
	s.publishDiagnostics(glspCtx, uri)
	return nil
}

func (s *Server) textDocumentDidClose(
	glspCtx *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.ws.CloseDocument(uri)
	s.diags.Untrack(uri)
	// Clear anything still shown for the closed document.
	glspCtx.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// applyChange splices an incremental edit into content.
func applyChange(uri protocol.DocumentUri, content string, change protocol.TextDocumentContentChangeEvent) (string, error) {
	if change.Range == nil {
		return change.Text, nil
	}
	doc := document.New(uri, 0, content)
	start := doc.OffsetAt(change.Range.Start)
	end := doc.OffsetAt(change.Range.End)
	if start > end {
		return "", fmt.Errorf("invalid change range %v", change.Range)
	}
	return content[:start] + change.Text + content[end:], nil
}

func (s *Server) publishDiagnostics(glspCtx *glsp.Context, uri protocol.DocumentUri) {
	doc, err := s.ws.OpenMarkdownDocument(context.Background(), uri)
	if err != nil || doc == nil {
		return
	}
	diags, err := s.diags.Compute(context.Background(), doc, s.cfg.DiagnosticOptions())
	if err != nil {
		log.Printf("diagnostics for %s: %v", uri, err)
		return
	}
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	glspCtx.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// revalidate recomputes and re-pushes diagnostics for a document whose
// validation went stale through a filesystem change.
func (s *Server) revalidate(uri protocol.DocumentUri) {
	go func() {
		doc, err := s.ws.OpenMarkdownDocument(context.Background(), uri)
		if err != nil || doc == nil {
			return
		}
		diags, err := s.diags.Compute(context.Background(), doc, s.cfg.DiagnosticOptions())
		if err != nil {
			log.Printf("revalidation of %s: %v", uri, err)
			return
		}
		if diags == nil {
			diags = []protocol.Diagnostic{}
		}
		s.notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
			URI:         uri,
			Diagnostics: diags,
		})
	}()
}
