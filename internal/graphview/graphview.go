// Package graphview serves a live view of the workspace link graph over
// HTTP and WebSocket.
package graphview

import (
	"embed"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/index"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// GraphData holds the nodes and links of the graph.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is one document. ID is unique within a snapshot.
type Node struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	URI   string `json:"uri"`
}

// Link is a directed edge between two nodes.
type Link struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// message is sent over WebSocket to update clients.
type message struct {
	Op    string     `json:"op"` // "init" or "refresh"
	Graph *GraphData `json:"graph"`
}

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Server owns the HTTP listener and the connected clients. The graph is
// rebuilt from the link index whenever the workspace reports a change.
type Server struct {
	idx *index.Index

	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	listener net.Listener

	subs      []workspace.Disposable
	closeOnce sync.Once
}

func New(idx *index.Index, ws workspace.Workspace) *Server {
	s := &Server{
		idx:     idx,
		clients: make(map[*websocket.Conn]bool),
	}
	s.subs = append(s.subs, ws.OnDidChangeFile(func(workspace.FileEvent) {
		s.broadcast("refresh")
	}))
	return s
}

// Start begins serving on addr (":0" picks any free port) and returns the
// URL where the graph can be viewed.
func (s *Server) Start(addr string) (string, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFiles)))
	mux.HandleFunc("/ws", s.handleWS)

	go func() {
		if err := http.Serve(l, mux); err != nil && !strings.Contains(err.Error(), "use of closed") {
			log.Printf("graph server error: %v", err)
		}
	}()

	return "http://" + l.Addr().String() + "/static/", nil
}

// Snapshot builds the current graph from the link index.
func (s *Server) Snapshot() (GraphData, error) {
	edges, err := s.idx.Edges()
	if err != nil {
		return GraphData{}, err
	}

	ids := make(map[protocol.DocumentUri]int)
	var uris []protocol.DocumentUri
	intern := func(uri protocol.DocumentUri) int {
		if id, ok := ids[uri]; ok {
			return id
		}
		id := len(uris)
		ids[uri] = id
		uris = append(uris, uri)
		return id
	}

	var sources []protocol.DocumentUri
	for source := range edges {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	graph := GraphData{Nodes: []Node{}, Links: []Link{}}
	for _, source := range sources {
		from := intern(source)
		for _, target := range edges[source] {
			graph.Links = append(graph.Links, Link{Source: from, Target: intern(target)})
		}
	}
	for id, uri := range uris {
		graph.Nodes = append(graph.Nodes, Node{ID: id, Label: label(uri), URI: string(uri)})
	}
	return graph, nil
}

// label shortens a URI to its last path segment.
func label(uri protocol.DocumentUri) string {
	trimmed := strings.TrimSuffix(string(uri), "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func (s *Server) broadcast(op string) {
	graph, err := s.Snapshot()
	if err != nil {
		log.Printf("graph snapshot error: %v", err)
		return
	}
	data, err := json.Marshal(message{Op: op, Graph: &graph})
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	if graph, err := s.Snapshot(); err == nil {
		if data, err := json.Marshal(message{Op: "init", Graph: &graph}); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}

	// Keep the connection open until the client goes away.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}

// Close stops the listener and drops every client. Idempotent.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		for _, sub := range s.subs {
			sub.Dispose()
		}
		s.subs = nil

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listener != nil {
			s.listener.Close()
		}
		for conn := range s.clients {
			conn.Close()
		}
		s.clients = make(map[*websocket.Conn]bool)
	})
}
