// Package web provides the HTTP status server and remote ring-off.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ringer/log"
	"ringer/ring"
	"ringer/status"
)

// Controller is the part of the daemon the server may act on.
type Controller interface {
	RingOff() int
	SetOffset(sec int) error
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctl        Controller
	broker     *status.Broker
}

// New creates a Server that reads state from tracker and forwards actions
// to ctl. broker may be nil, which disables /ws.
func New(addr string, tracker *status.Tracker, ctl Controller, broker *status.Broker) *Server {
	s := &Server{tracker: tracker, ctl: ctl, broker: broker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/status.json", s.handleJSON)
	mux.HandleFunc("/ring-off", s.handleRingOff)
	mux.HandleFunc("/offset", s.handleOffset)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatJSON(snap))
}

func (s *Server) handleRingOff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stopped := s.ctl.RingOff()
	log.Infof("ring-off via http from %s", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]int{"stopped": stopped})
}

type offsetBody struct {
	Offset int `json:"offset"`
}

func (s *Server) handleOffset(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, offsetBody{Offset: s.tracker.Snapshot().Ring.Offset})
	case http.MethodPut, http.MethodPost:
		var body offsetBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&body); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.ctl.SetOffset(body.Offset); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, ring.ErrOffsetRange) {
				code = http.StatusBadRequest
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeJSON(w, http.StatusOK, body)
	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		http.NotFound(w, r)
		return
	}
	var types []ring.EventType
	if q := r.URL.Query().Get("types"); q != "" {
		for _, t := range strings.Split(q, ",") {
			types = append(types, ring.EventType(strings.TrimSpace(t)))
		}
	}
	s.broker.ServeWS(w, r, types)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
