// Package server is the optional HTTP mode: the MCP endpoint over the
// streamable transport plus a small operational API (health, invocation log).
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aviolabs/avstack/internal/domain/audit"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default HTTP server configuration. WriteTimeout is
// generous because the MCP streamable transport holds responses open while
// upstream retries play out.
func DefaultConfig() Config {
	return Config{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server wraps the HTTP server and database.
type Server struct {
	config Config
	db     *sql.DB
	http   *http.Server
}

// NewServer builds the HTTP server: /mcp carries the MCP session traffic,
// /healthz answers probes, /v1/invocations exposes the invocation log.
func NewServer(db *sql.DB, mcpServer *mcp.Server, auditSvc *audit.Service, config Config) *Server {
	router := newRouter(mcpServer, auditSvc)

	httpServer := &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		config: config,
		db:     db,
		http:   httpServer,
	}
}

func newRouter(mcpServer *mcp.Server, auditSvc *audit.Service) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check — unauthenticated, used by load balancers and health probes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Get("/v1/invocations", listInvocations(auditSvc))

	// Streamable MCP transport; the handler owns session negotiation for
	// every method on this path.
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil))

	return r
}

// ListInvocationsResponse is the response body for the invocation log.
type ListInvocationsResponse struct {
	Data []*audit.Invocation `json:"data"`
	Meta Meta                `json:"meta"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// listInvocations handles GET /v1/invocations with optional limit and
// offset query parameters.
func listInvocations(auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)

		invocations, total, err := auditSvc.List(r.Context(), limit, offset)
		if err != nil {
			log.Printf("list invocations: %v", err)
			http.Error(w, `{"error":"failed to list invocations"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(ListInvocationsResponse{ //nolint:errcheck
			Data: invocations,
			Meta: Meta{Total: total, Limit: limit, Offset: offset},
		})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// Start starts the HTTP server and blocks until an error occurs.
func (s *Server) Start(ctx context.Context) error {
	log.Printf("Starting HTTP server on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes the database connection.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("database close error: %w", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
