// Package server exposes the file registry over HTTP. All state lives in the
// injected catalog and history store; the server itself is stateless and safe
// for concurrent requests.
package server

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/faizansabir7/fileTransfer/internal/events"
	"github.com/faizansabir7/fileTransfer/internal/history"
	"github.com/faizansabir7/fileTransfer/internal/ratelimit"
	"github.com/faizansabir7/fileTransfer/internal/registry"
)

// Server is the registry HTTP server.
type Server struct {
	catalog *registry.Catalog
	history *history.DB
	hub     *events.Hub
	port    int
	limiter *ratelimit.PerKey
	mux     *http.ServeMux

	uploadLimit int64
}

// New creates a Server with all routes registered. port is the listening
// port, used to build the advertised base URL. hist may be nil to disable
// the transfer log.
func New(catalog *registry.Catalog, hist *history.DB, hub *events.Hub, port int) *Server {
	s := &Server{
		catalog: catalog,
		history: hist,
		hub:     hub,
		port:    port,
		limiter: ratelimit.NewPerKey(300, time.Minute),
		mux:     http.NewServeMux(),

		uploadLimit: maxUploadSize,
	}
	s.routes()
	return s
}

// Close releases background resources held by the server. It does not stop
// in-flight requests; use http.Server.Shutdown for that.
func (s *Server) Close() {
	s.limiter.Close()
}

// ServeHTTP implements http.Handler, applying CORS and per-IP rate limiting
// before dispatch.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges, ETag")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusOK)
		return
	}

	// The event feed is one long-lived connection, not repeated requests.
	if r.URL.Path != "/api/events" && !s.limiter.Allow(getIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	s.mux.ServeHTTP(w, r)
}

// routes registers all HTTP routes on the server mux.
func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/network-info", s.handleNetworkInfo)
	s.mux.HandleFunc("GET /api/qr", s.handleQR)

	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/files", s.handleListFiles)
	s.mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
	s.mux.HandleFunc("DELETE /api/remove-file/{id}", s.handleRemoveFile)

	s.mux.HandleFunc("GET /api/history", s.handleHistory)

	if s.hub != nil {
		s.mux.HandleFunc("GET /api/events", s.hub.HandleWebSocket)
	}
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHistory returns the most recent transfer events.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"events": []history.Event{}})
		return
	}
	evs, err := s.history.ListRecent(100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if evs == nil {
		evs = []history.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evs})
}

// record appends a transfer event to the history log, if enabled.
func (s *Server) record(eventType string, f *registry.SharedFile, r *http.Request) {
	if s.history == nil {
		return
	}
	e := &history.Event{
		Type:     eventType,
		FileID:   f.ID,
		FileName: f.Name,
		Size:     f.Size,
		Peer:     getIP(r),
		At:       time.Now().Unix(),
	}
	if err := s.history.Record(e); err != nil {
		// History is advisory; a failed write never fails the request.
		log.Printf("[server] record %s event: %v", eventType, err)
	}
}

// broadcast pushes a catalog-change notification to event subscribers.
func (s *Server) broadcast(eventType string, payload any) {
	if s.hub != nil {
		s.hub.Broadcast(events.Message{Type: eventType, Payload: payload})
	}
}

// getIP extracts the client IP from a request, respecting X-Forwarded-For
// for proxied deployments.
func getIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
