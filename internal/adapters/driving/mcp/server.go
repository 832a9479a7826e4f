package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/reportqa/internal/logger"
)

// Version is reported to clients when the caller does not set one.
const Version = "0.1.0"

// shutdownTimeout bounds how long in-flight questions may finish after
// the context is cancelled. Map-reduce answers take tens of seconds.
const shutdownTimeout = 30 * time.Second

const instructions = `reportqa answers questions from published IEA reports.

Call "ask" with a natural-language question. The answer cites the report
pages it used; when nothing relevant is found it says so and lists the
reports it checked. Call "list_reports" to see what the catalog holds
before asking about a specific report. Read reportqa://reports/{reportId}
for a report's metadata and abstract.`

// Server exposes the question answering pipeline over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the tools, and the catalog resources when a catalog
// port is present.
func NewServer(ports *Ports) (*Server, error) {
	return NewServerWithVersion(ports, Version)
}

// NewServerWithVersion is NewServer reporting version to clients.
func NewServerWithVersion(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if version == "" {
		version = Version
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "reportqa", Version: version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}

	s.registerTools()
	if ports.Catalog != nil {
		s.registerResources()
	}
	return s, nil
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves streamable HTTP at /mcp and a readiness check at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil))
	mux.HandleFunc("/healthz", s.health)
	return mux
}

// health reports ready once the catalog answers. Without a catalog port
// the server is always ready.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	code := http.StatusOK
	if s.ports.Catalog != nil {
		stats, err := s.ports.Catalog.Stats(r.Context())
		if err != nil {
			status["status"] = "unavailable"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["reports"] = stats.Reports
			status["chunks"] = stats.Chunks
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status) //nolint:errcheck,gosec // client went away
}

// RunHTTP serves Handler on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
