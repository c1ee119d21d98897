// Package index persists the workspace link graph in sqlite so references
// and backlinks survive across sessions and stay queryable without
// re-scanning every document.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/links"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

var ErrClosed = errors.New("index is closed")

// Location is one link occurrence inside a document.
type Location struct {
	URI   protocol.DocumentUri
	Range protocol.Range
}

// Index stores, per document, the internal links it carries. It subscribes
// to workspace notifications and keeps itself current.
type Index struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool

	links *links.Provider
	subs  []workspace.Disposable
}

// Open creates or opens the database at path and wires workspace
// subscriptions so edits keep the index fresh.
func Open(path string, ws workspace.Workspace, linkProvider *links.Provider) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	idx := &Index{db: db, links: linkProvider}
	idx.subs = append(idx.subs,
		ws.OnDidCreateMarkdownDocument(idx.onDocument),
		ws.OnDidChangeMarkdownDocument(idx.onDocument),
		ws.OnDidDeleteMarkdownDocument(idx.onDelete),
	)
	return idx, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		fragment TEXT NOT NULL DEFAULT '',
		start_line INTEGER NOT NULL,
		start_char INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_char INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
	CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Update replaces a document's stored links with its current link set.
func (i *Index) Update(ctx context.Context, doc document.Document) error {
	set, err := i.links.GetLinks(ctx, doc)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrClosed
	}

	tx, err := i.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM links WHERE source = ?", string(doc.URI())); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO links (source, target, fragment, start_line, start_char, end_line, end_char)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, link := range set.Links {
		if link.Href.Kind != links.HrefInternal {
			continue
		}
		r := link.Source.HrefRange
		if _, err := stmt.Exec(
			string(doc.URI()), string(link.Href.Path), link.Href.Fragment,
			r.Start.Line, r.Start.Character, r.End.Line, r.End.Character,
		); err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Remove drops every link sourced from uri.
func (i *Index) Remove(uri protocol.DocumentUri) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrClosed
	}
	if _, err := i.db.Exec("DELETE FROM links WHERE source = ?", string(uri)); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	return nil
}

// ForwardLinks returns the distinct targets a document links to, sorted.
func (i *Index) ForwardLinks(uri protocol.DocumentUri) ([]protocol.DocumentUri, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrClosed
	}

	rows, err := i.db.Query("SELECT DISTINCT target FROM links WHERE source = ? ORDER BY target", string(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to query forward links: %w", err)
	}
	defer rows.Close()

	var targets []protocol.DocumentUri
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, protocol.DocumentUri(target))
	}
	return targets, rows.Err()
}

// Backlinks returns every stored link occurrence pointing at uri.
func (i *Index) Backlinks(uri protocol.DocumentUri) ([]Location, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrClosed
	}

	rows, err := i.db.Query(`
		SELECT source, start_line, start_char, end_line, end_char
		FROM links WHERE target = ? ORDER BY source, id
	`, string(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to query backlinks: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var source string
		var loc Location
		if err := rows.Scan(&source, &loc.Range.Start.Line, &loc.Range.Start.Character, &loc.Range.End.Line, &loc.Range.End.Character); err != nil {
			return nil, fmt.Errorf("failed to scan backlink: %w", err)
		}
		loc.URI = protocol.DocumentUri(source)
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// Edges returns the whole stored link graph as (source, target) pairs.
func (i *Index) Edges() (map[protocol.DocumentUri][]protocol.DocumentUri, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrClosed
	}

	rows, err := i.db.Query("SELECT DISTINCT source, target FROM links ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	edges := make(map[protocol.DocumentUri][]protocol.DocumentUri)
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges[protocol.DocumentUri(source)] = append(edges[protocol.DocumentUri(source)], protocol.DocumentUri(target))
	}
	return edges, rows.Err()
}

// Rebuild re-indexes every markdown document in the workspace.
func (i *Index) Rebuild(ctx context.Context, ws workspace.Workspace) error {
	docs, err := ws.GetAllMarkdownDocuments(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := i.Update(ctx, doc); err != nil {
			return fmt.Errorf("failed to index %s: %w", doc.URI(), err)
		}
	}
	return nil
}

func (i *Index) onDocument(doc document.Document) {
	// Best effort; a broken document simply keeps its previous entries.
	_ = i.Update(context.Background(), doc)
}

func (i *Index) onDelete(uri protocol.DocumentUri) {
	_ = i.Remove(uri)
}

// Close releases subscriptions and the database handle. Idempotent.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	for _, sub := range i.subs {
		sub.Dispose()
	}
	i.subs = nil
	return i.db.Close()
}
