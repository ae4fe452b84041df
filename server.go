package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/veenone/modem-inspector/report"
)

// Server exposes inspection over HTTP for bench automation. POST
// /inspect runs a full session against the configured modem and returns
// the report; GET /report returns the most recent one.
type Server struct {
	Logger    *slog.Logger
	Inspector *Inspector

	mu   sync.Mutex
	last *report.Report
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /inspect", s.handleInspect)
	mux.HandleFunc("GET /report", s.handleReport)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleInspect runs one inspection session and returns its report
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Inspector.Run(r.Context())
	if err != nil {
		s.Logger.Error("Inspection failed", "error", err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	s.Logger.Info("Inspection complete", "session", rep.SessionID,
		"commands", rep.Summary.Commands, "aggregate_confidence", rep.Summary.Aggregate)

	w.Header().Set("Content-Type", "application/json")
	if err := rep.WriteJSON(w); err != nil {
		s.Logger.Error("Failed to write report", "error", err)
	}
}

// handleReport returns the most recent inspection report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rep := s.last
	s.mu.Unlock()

	if rep == nil {
		s.sendError(w, "no inspection has run yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := rep.WriteJSON(w); err != nil {
		s.Logger.Error("Failed to write report", "error", err)
	}
}
