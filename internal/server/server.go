// Package server provides the HTTP surface for transcript upload, ingestion
// progress, chat turns and session lifecycle, plus server startup and
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/scrypster/reverie/internal/chat"
	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/ingest"
	"github.com/scrypster/reverie/internal/session"
	"github.com/scrypster/reverie/internal/storage"
)

// Server wires the ingestion pipeline, chat engine and session registry into
// HTTP handlers.
type Server struct {
	pipeline *ingest.Pipeline
	engine   *chat.Engine
	registry session.Registry
	turns    storage.TurnStore
	cfg      config.ServerConfig

	wsOrigins []string
}

// New creates a server.
func New(pipeline *ingest.Pipeline, engine *chat.Engine, registry session.Registry, turns storage.TurnStore, cfg config.ServerConfig) *Server {
	return &Server{
		pipeline: pipeline,
		engine:   engine,
		registry: registry,
		turns:    turns,
		cfg:      cfg,
		wsOrigins: []string{
			fmt.Sprintf("localhost:%d", cfg.Port),
			fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		},
	}
}

// Handler builds the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleUpload(w, r)
	})
	mux.HandleFunc("/api/progress/{uploadId}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleProgressWS(w, r)
	})
	mux.HandleFunc("/api/progress/{uploadId}/poll", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleProgressPoll(w, r)
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleChat(w, r)
	})
	mux.HandleFunc("/api/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleDeleteSession(w, r)
	})
	mux.HandleFunc("/api/health", s.handleHealth)

	rateLimiter := NewRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)
	handler := RateLimitMiddleware(mux, rateLimiter)
	handler = requestLoggingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	return handler
}

// Start begins serving and returns the actual address being listened on
// (useful for testing with port 0). The server shuts down gracefully when
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()
	log.Printf("Server listening on %s", actualAddr)

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	return actualAddr, nil
}
