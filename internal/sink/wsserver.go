// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// LiveServer is the live-view sink: it serves samples as JSON over a
// websocket at /ws, plus the latest sample at /api/latest for one-shot
// polls. Viewers that cannot keep up get samples dropped on their own send
// buffer; one slow browser tab never stalls the broadcast or the pipeline.
type LiveServer struct {
	server   *http.Server
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsViewer]struct{}
	last    loadcell.Sample
	have    bool
	closed  bool
}

type wsViewer struct {
	conn    *websocket.Conn
	send    chan []byte
	dropped uint64
}

const viewerSendBuffer = 16

// NewLiveServer creates the sink listening on the given port.
func NewLiveServer(port int) *LiveServer {
	s := &LiveServer{
		clients: make(map[*wsViewer]struct{}),
		upgrader: websocket.Upgrader{
			// Viewers are local plot tools, not browsers on our origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/latest", s.handleLatest)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start begins serving in the background. The sink accepts samples whether
// or not any viewer is connected.
func (s *LiveServer) Start() {
	go func() {
		log.Printf("live: websocket server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("live: server error: %v", err)
		}
	}()
}

func (s *LiveServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: upgrade error: %v", err)
		return
	}

	viewer := &wsViewer{
		conn: conn,
		send: make(chan []byte, viewerSendBuffer),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[viewer] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()

	log.Printf("live: viewer connected from %s (%d total)", r.RemoteAddr, n)
	go s.writeLoop(viewer)
}

func (s *LiveServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last, have := s.last, s.have
	s.mu.RUnlock()

	if !have {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(last); err != nil {
		log.Printf("live: json encode error: %v", err)
	}
}

func (s *LiveServer) writeLoop(viewer *wsViewer) {
	defer s.removeViewer(viewer)

	for payload := range viewer.send {
		viewer.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := viewer.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("live: viewer write error: %v", err)
			return
		}
	}
	// Channel closed: server shutdown.
	viewer.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

func (s *LiveServer) removeViewer(viewer *wsViewer) {
	s.mu.Lock()
	delete(s.clients, viewer)
	s.mu.Unlock()
	viewer.conn.Close()
}

// Accept broadcasts one sample to every connected viewer without blocking.
func (s *LiveServer) Accept(sample loadcell.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("live: marshal sample: %w", err)
	}

	s.mu.Lock()
	s.last = sample
	s.have = true
	for viewer := range s.clients {
		select {
		case viewer.send <- payload:
		default:
			viewer.dropped++
		}
	}
	s.mu.Unlock()
	return nil
}

// Close disconnects all viewers and shuts the server down.
func (s *LiveServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for viewer := range s.clients {
		close(viewer.send)
	}
	s.clients = make(map[*wsViewer]struct{})
	s.mu.Unlock()

	return s.server.Close()
}
