// SPDX-License-Identifier: Apache-2.0

// Package server exposes the bridge over HTTP: a WebSocket feed of decoded
// telemetry plus a small JSON API for field metadata and setting writes.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

// Setter applies a single-field setting write.
type Setter interface {
	Set(field string, value float64) error
}

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	Type       string                 `json:"type"`
	PacketType byte                   `json:"packetType"`
	Fields     map[string]interface{} `json:"fields"`
	Stamp      int64                  `json:"stamp"`
}

// setRequest is a client-issued setting write, over WebSocket or POST.
type setRequest struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

// fieldInfo describes one protocol field for the API.
type fieldInfo struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit,omitempty"`
	Writable bool    `json:"writable"`
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Server broadcasts decoded messages to WebSocket clients and accepts
// setting writes.
type Server struct {
	listenAddr string
	setter     Setter

	clientsMu sync.RWMutex
	clients   map[*wsClient]struct{}

	stateMu sync.Mutex
	latest  map[byte]Frame // most recent frame per packet type

	upgrader websocket.Upgrader
}

// New creates a server. setter receives every field write request.
func New(listenAddr string, setter Setter) *Server {
	return &Server{
		listenAddr: listenAddr,
		setter:     setter,
		clients:    make(map[*wsClient]struct{}),
		latest:     make(map[byte]Frame),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish broadcasts a decoded message to every connected client. Wire it
// to the bridge's subscription; it never blocks the caller.
func (s *Server) Publish(msg aquarea.Message) {
	frame := Frame{
		Type:       "state",
		PacketType: msg.PacketType,
		Fields:     msg.Fields,
		Stamp:      time.Now().UnixMilli(),
	}

	s.stateMu.Lock()
	s.latest[msg.PacketType] = frame
	s.stateMu.Unlock()

	s.broadcast(frame)
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[server] marshal error: %v", err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Slow client; drop the frame rather than stall the feed.
		}
	}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.listenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] listening on %s", s.listenAddr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/fields", s.handleFields)
	mux.HandleFunc("/api/set", s.handleSet)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()
	log.Printf("[ws] client connected (%d total)", total)

	// Seed the new client with the latest state per packet type.
	s.stateMu.Lock()
	for _, frame := range s.latest {
		if data, err := json.Marshal(frame); err == nil {
			client.send <- data
		}
	}
	s.stateMu.Unlock()

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine: handles setting writes issued over the socket.
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			log.Printf("[ws] client disconnected (%d total)", total)
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req setRequest
			if err := json.Unmarshal(data, &req); err != nil || req.Field == "" {
				continue
			}
			if err := s.setter.Set(req.Field, req.Value); err != nil {
				log.Printf("[ws] set %s=%v rejected: %v", req.Field, req.Value, err)
			}
		}
	}()
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var fields []fieldInfo
	for _, table := range [][]aquarea.FieldSpec{aquarea.StandardFields, aquarea.ExtraFields} {
		for _, f := range table {
			fields = append(fields, fieldInfo{
				Name:     f.Name,
				Unit:     f.Unit,
				Writable: f.Writable,
				Min:      f.Min,
				Max:      f.Max,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fields)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Field == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := s.setter.Set(req.Field, req.Value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
