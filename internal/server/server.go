// Package server wires the language service core to an LSP connection.
package server

import (
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/CamdenClark/zett-languageservice/internal/config"
	"github.com/CamdenClark/zett-languageservice/internal/diagnostics"
	"github.com/CamdenClark/zett-languageservice/internal/graphview"
	"github.com/CamdenClark/zett-languageservice/internal/index"
	"github.com/CamdenClark/zett-languageservice/internal/links"
	"github.com/CamdenClark/zett-languageservice/internal/scheduler"
	"github.com/CamdenClark/zett-languageservice/internal/slug"
	"github.com/CamdenClark/zett-languageservice/internal/toc"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

const serverName = "zett-languageservice"

// CommandGraph starts or reports the live graph view.
const CommandGraph = "zett.graph"

// Server holds everything built at initialize time. The core providers are
// nil until the client sends initialize.
type Server struct {
	handler *protocol.Handler
	cfg     config.Config

	ws        *workspace.Dir
	tok       tokenizer.Tokenizer
	slugifier slug.Slugifier
	tocs      *toc.Provider
	wsTocs    *toc.WorkspaceProvider
	links     *links.Provider
	diags     *diagnostics.Manager
	idx       *index.Index
	graph     *graphview.Server
	graphURL  string
	sched     *scheduler.Scheduler

	// notifyMu guards the most recent glsp context, used to push
	// diagnostics outside a request handler.
	notifyMu   sync.Mutex
	notifyFunc func(method string, params any)
}

// New builds the LSP server around an empty Server; the workspace and
// providers come up during initialize.
func New() *server.Server {
	s := &Server{}
	s.handler = &protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		TextDocumentDidOpen:        s.textDocumentDidOpen,
		TextDocumentDidChange:      s.textDocumentDidChange,
		TextDocumentDidSave:        s.textDocumentDidSave,
		TextDocumentDidClose:       s.textDocumentDidClose,
		TextDocumentDocumentLink:   s.textDocumentDocumentLink,
		DocumentLinkResolve:        s.documentLinkResolve,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		WorkspaceSymbol:            s.workspaceSymbol,
		TextDocumentReferences:     s.textDocumentReferences,
		WorkspaceExecuteCommand:    s.workspaceExecuteCommand,
	}
	return server.NewServer(s.handler, serverName, false)
}

// rememberNotifier keeps the latest connection's notify function so
// manager-driven revalidation can push diagnostics later.
func (s *Server) rememberNotifier(notify func(method string, params any)) {
	s.notifyMu.Lock()
	s.notifyFunc = notify
	s.notifyMu.Unlock()
}

func (s *Server) notify(method string, params any) {
	s.notifyMu.Lock()
	notify := s.notifyFunc
	s.notifyMu.Unlock()
	if notify != nil {
		notify(method, params)
	}
}
