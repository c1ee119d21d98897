package diagnostics

import (
	"context"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// validation is one document's last computed state: its diagnostics plus
// every filesystem path the computation stated and what stat returned.
type validation struct {
	version     int32
	options     Options
	diagnostics []protocol.Diagnostic
	touched     map[protocol.DocumentUri]workspace.FileStat
	touchedOk   map[protocol.DocumentUri]bool
	stale       bool
}

// Manager computes diagnostics incrementally. A repeated request for an
// unchanged document reuses the previous result without re-stating any
// path; workspace file events invalidate only the documents whose touched
// paths intersect the change.
type Manager struct {
	computer *Computer
	ws       workspace.Workspace

	mu       sync.Mutex
	tracked  map[protocol.DocumentUri]*validation
	handlers []func(protocol.DocumentUri)

	subs        []workspace.Disposable
	disposeOnce sync.Once
}

func NewManager(computer *Computer, ws workspace.Workspace) *Manager {
	m := &Manager{
		computer: computer,
		ws:       ws,
		tracked:  make(map[protocol.DocumentUri]*validation),
	}
	m.subs = append(m.subs,
		ws.OnDidChangeFile(m.onFileEvent),
		ws.OnDidDeleteMarkdownDocument(m.onDelete),
	)
	return m
}

// Compute returns diagnostics for doc, reusing the previous validation when
// the document version, options and every touched path are unchanged.
func (m *Manager) Compute(ctx context.Context, doc document.Document, options Options) ([]protocol.Diagnostic, error) {
	uri := doc.URI()

	m.mu.Lock()
	if v, ok := m.tracked[uri]; ok && !v.stale && v.version == doc.Version() && v.options.equal(options) {
		diags := v.diagnostics
		m.mu.Unlock()
		return diags, nil
	}
	m.mu.Unlock()

	touched := make(map[protocol.DocumentUri]workspace.FileStat)
	touchedOk := make(map[protocol.DocumentUri]bool)
	recordingStat := func(ctx context.Context, uri protocol.DocumentUri) (workspace.FileStat, bool) {
		st, ok := m.ws.Stat(ctx, uri)
		touched[uri] = st
		touchedOk[uri] = ok
		return st, ok
	}

	report, err := m.computer.ComputeWithStat(ctx, doc, options, recordingStat)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.tracked[uri] = &validation{
		version:     doc.Version(),
		options:     options,
		diagnostics: report.Diagnostics,
		touched:     touched,
		touchedOk:   touchedOk,
	}
	m.mu.Unlock()
	return report.Diagnostics, nil
}

// Untrack drops state for a document no longer being validated.
func (m *Manager) Untrack(uri protocol.DocumentUri) {
	m.mu.Lock()
	delete(m.tracked, uri)
	m.mu.Unlock()
}

// OnNeedsRevalidation registers a handler called with the URI of every
// tracked document whose validation went stale.
func (m *Manager) OnNeedsRevalidation(handler func(protocol.DocumentUri)) {
	m.mu.Lock()
	m.handlers = append(m.handlers, handler)
	m.mu.Unlock()
}

func (m *Manager) onFileEvent(event workspace.FileEvent) {
	var stale []protocol.DocumentUri

	m.mu.Lock()
	for uri, v := range m.tracked {
		if v.stale {
			continue
		}
		if uri == event.URI {
			v.stale = true
			stale = append(stale, uri)
			continue
		}
		if _, ok := v.touched[event.URI]; ok {
			v.stale = true
			stale = append(stale, uri)
		}
	}
	handlers := m.handlers
	m.mu.Unlock()

	for _, uri := range stale {
		for _, handler := range handlers {
			handler(uri)
		}
	}
}

func (m *Manager) onDelete(uri protocol.DocumentUri) {
	m.mu.Lock()
	delete(m.tracked, uri)
	m.mu.Unlock()
}

// Dispose releases the workspace subscriptions. Idempotent.
func (m *Manager) Dispose() {
	m.disposeOnce.Do(func() {
		for _, sub := range m.subs {
			sub.Dispose()
		}
		m.subs = nil
	})
}
