package server

import (
	"context"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

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

func (s *Server) initialize(
	glspCtx *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Load(params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	log.Printf("config: %+v", cfg)

	root, err := rootPath(params)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.NewDir(root, cfg.Excludes...)
	if err != nil {
		return nil, err
	}
	s.ws = ws

	s.tok = tokenizer.NewMarkdown()
	s.slugifier = slug.NewGitHub()
	s.tocs = toc.NewProvider(s.tok, s.slugifier, ws)
	s.wsTocs = toc.NewWorkspaceProvider(s.tok, s.slugifier, ws)
	s.links = links.NewProvider(s.tok, ws, s.tocs, s.slugifier)

	computer := diagnostics.NewComputer(ws, s.links, s.tocs, s.slugifier)
	s.diags = diagnostics.NewManager(computer, ws)
	s.diags.OnNeedsRevalidation(s.revalidate)

	indexPath := filepath.Join(ws.Root(), filepath.FromSlash(cfg.IndexPath))
	if err := os.MkdirAll(filepath.Dir(indexPath), 0700); err != nil {
		return nil, err
	}
	idx, err := index.Open(indexPath, ws, s.links)
	if err != nil {
		return nil, err
	}
	s.idx = idx

	if cfg.GraphAddr != "" {
		s.graph = graphview.New(idx, ws)
		if url, err := s.graph.Start(cfg.GraphAddr); err != nil {
			log.Printf("graph view failed to start: %v", err)
		} else {
			s.graphURL = url
			log.Printf("graph view at %s", url)
		}
	}

	if err := ws.Watch(); err != nil {
		log.Printf("filesystem watch unavailable: %v", err)
	}

	s.sched = scheduler.New(4)
	s.sched.Run()
	rebuild := scheduler.Task{
		Name: "index rebuild",
		Execute: func() error {
			return s.idx.Rebuild(context.Background(), s.ws)
		},
	}
	s.sched.Schedule(rebuild)
	s.sched.SchedulePeriodic(5*time.Minute, rebuild)

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.DocumentLinkProvider = &protocol.DocumentLinkOptions{
		ResolveProvider: &protocol.True,
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandGraph},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
	}, nil
}

func (s *Server) initialized(
	glspCtx *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Println("client initialized")
	return nil
}

func (s *Server) shutdown(glspCtx *glsp.Context) error {
	if s.sched != nil {
		s.sched.Stop()
	}
	if s.diags != nil {
		s.diags.Dispose()
	}
	if s.graph != nil {
		s.graph.Close()
	}
	if s.idx != nil {
		if err := s.idx.Close(); err != nil {
			log.Printf("index close: %v", err)
		}
	}
	if s.links != nil {
		s.links.Dispose()
	}
	if s.wsTocs != nil {
		s.wsTocs.Dispose()
	}
	if s.tocs != nil {
		s.tocs.Dispose()
	}
	if s.ws != nil {
		s.ws.Close()
	}
	return nil
}

// rootPath extracts the workspace root from the initialize params.
func rootPath(params *protocol.InitializeParams) (string, error) {
	raw := ""
	switch {
	case len(params.WorkspaceFolders) > 0:
		raw = params.WorkspaceFolders[0].URI
	case params.RootURI != nil:
		raw = *params.RootURI
	}
	if raw == "" {
		return os.Getwd()
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return u.Path, nil
}
