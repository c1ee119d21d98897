package workspace

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
)

// defaultExcludes keeps the walker and watcher out of directories that never
// hold workspace markdown.
var defaultExcludes = []string{".git/**", "node_modules/**", ".obsidian/**"}

// Dir is a Workspace rooted at a directory on disk with an editor overlay on
// top: overlaid documents take precedence over their on-disk content.
type Dir struct {
	root     string
	folders  []protocol.DocumentUri
	excludes []string

	mu      sync.RWMutex
	overlay map[protocol.DocumentUri]document.Document

	watcher   *fsnotify.Watcher
	watchDone chan struct{}

	createEmitter emitter[document.Document]
	changeEmitter emitter[document.Document]
	deleteEmitter emitter[protocol.DocumentUri]
	fileEmitter   emitter[FileEvent]
}

func NewDir(root string, excludes ...string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if len(excludes) == 0 {
		excludes = defaultExcludes
	}
	return &Dir{
		root:     abs,
		folders:  []protocol.DocumentUri{document.FromPath(abs)},
		excludes: excludes,
		overlay:  make(map[protocol.DocumentUri]document.Document),
	}, nil
}

func (w *Dir) Root() string { return w.root }

func (w *Dir) excluded(abs string) bool {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// Also exclude anything below an excluded directory.
		if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); ok {
			return true
		}
	}
	return false
}

func (w *Dir) OpenMarkdownDocument(_ context.Context, uri protocol.DocumentUri) (document.Document, error) {
	w.mu.RLock()
	doc, ok := w.overlay[uri]
	w.mu.RUnlock()
	if ok {
		return doc, nil
	}
	if !document.IsMarkdown(uri) {
		return nil, nil
	}
	path, err := document.ToPath(uri)
	if err != nil || w.excluded(path) {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	return document.New(uri, 0, string(data)), nil
}

func (w *Dir) GetAllMarkdownDocuments(ctx context.Context) ([]document.Document, error) {
	var docs []document.Document
	seen := make(map[protocol.DocumentUri]struct{})

	w.mu.RLock()
	for uri, doc := range w.overlay {
		docs = append(docs, doc)
		seen[uri] = struct{}{}
	}
	w.mu.RUnlock()

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.root && w.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		uri := document.FromPath(path)
		if !document.IsMarkdown(uri) || w.excluded(path) {
			return nil
		}
		if _, ok := seen[uri]; ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		docs = append(docs, document.New(uri, 0, string(data)))
		return nil
	})
	return docs, err
}

func (w *Dir) Stat(_ context.Context, uri protocol.DocumentUri) (FileStat, bool) {
	w.mu.RLock()
	_, ok := w.overlay[uri]
	w.mu.RUnlock()
	if ok {
		return FileStat{}, true
	}
	path, err := document.ToPath(uri)
	if err != nil {
		return FileStat{}, false
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileStat{}, false
	}
	return FileStat{IsDirectory: info.IsDir()}, true
}

func (w *Dir) GetContainingDocument(protocol.DocumentUri) (ContainingDocument, bool) {
	return ContainingDocument{}, false
}

func (w *Dir) WorkspaceFolders() []protocol.DocumentUri {
	return w.folders
}

// OpenDocument installs editor content for a URI. The overlay wins over disk
// until CloseDocument.
func (w *Dir) OpenDocument(uri protocol.DocumentUri, version int32, text string) {
	doc := document.New(uri, version, text)
	path, _ := document.ToPath(uri)
	w.mu.Lock()
	w.overlay[uri] = doc
	w.mu.Unlock()
	if _, err := os.Stat(path); err == nil {
		w.changeEmitter.fire(doc)
	} else {
		w.createEmitter.fire(doc)
	}
}

// UpdateDocument replaces overlaid editor content.
func (w *Dir) UpdateDocument(uri protocol.DocumentUri, version int32, text string) {
	doc := document.New(uri, version, text)
	w.mu.Lock()
	w.overlay[uri] = doc
	w.mu.Unlock()
	w.changeEmitter.fire(doc)
}

// CloseDocument drops the overlay. Content falls back to disk; if the file
// is gone the document is reported deleted.
func (w *Dir) CloseDocument(uri protocol.DocumentUri) {
	w.mu.Lock()
	delete(w.overlay, uri)
	w.mu.Unlock()

	doc, _ := w.OpenMarkdownDocument(context.Background(), uri)
	if doc != nil {
		w.changeEmitter.fire(doc)
	} else {
		w.deleteEmitter.fire(uri)
	}
}

// Watch starts the filesystem watcher over the workspace tree. Stop it with
// Close.
func (w *Dir) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher
	w.watchDone = make(chan struct{})

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return err
	}

	go w.watchLoop()
	return nil
}

func (w *Dir) watchLoop() {
	defer close(w.watchDone)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func (w *Dir) handleFsEvent(event fsnotify.Event) {
	if w.excluded(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
			return
		}
	}

	uri := document.FromPath(event.Name)
	switch {
	case event.Op.Has(fsnotify.Create):
		w.fileEmitter.fire(FileEvent{URI: uri, Type: FileCreated})
		w.notifyMarkdown(uri, FileCreated)
	case event.Op.Has(fsnotify.Write):
		w.fileEmitter.fire(FileEvent{URI: uri, Type: FileChanged})
		w.notifyMarkdown(uri, FileChanged)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.fileEmitter.fire(FileEvent{URI: uri, Type: FileDeleted})
		w.notifyMarkdown(uri, FileDeleted)
	}
}

// notifyMarkdown translates a raw file event into a markdown document
// notification. Events for overlaid documents are dropped: the editor copy
// is authoritative while it is open.
func (w *Dir) notifyMarkdown(uri protocol.DocumentUri, change FileChangeType) {
	if !document.IsMarkdown(uri) {
		return
	}
	w.mu.RLock()
	_, overlaid := w.overlay[uri]
	w.mu.RUnlock()
	if overlaid {
		return
	}

	if change == FileDeleted {
		w.deleteEmitter.fire(uri)
		return
	}
	doc, _ := w.OpenMarkdownDocument(context.Background(), uri)
	if doc == nil {
		return
	}
	if change == FileCreated {
		w.createEmitter.fire(doc)
	} else {
		w.changeEmitter.fire(doc)
	}
}

// Close stops the watcher, if any.
func (w *Dir) Close() {
	if w.watcher != nil {
		w.watcher.Close()
		<-w.watchDone
		w.watcher = nil
	}
}

func (w *Dir) OnDidCreateMarkdownDocument(handler func(document.Document)) Disposable {
	return w.createEmitter.on(handler)
}

func (w *Dir) OnDidChangeMarkdownDocument(handler func(document.Document)) Disposable {
	return w.changeEmitter.on(handler)
}

func (w *Dir) OnDidDeleteMarkdownDocument(handler func(protocol.DocumentUri)) Disposable {
	return w.deleteEmitter.on(handler)
}

func (w *Dir) OnDidChangeFile(handler func(FileEvent)) Disposable {
	return w.fileEmitter.on(handler)
}
