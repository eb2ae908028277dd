// Package web serves the cronrecon HTTP API.
package web

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/patrickspencer/cronrecon/internal/store"
	"github.com/patrickspencer/cronrecon/internal/tab"
	"github.com/patrickspencer/cronrecon/internal/web/api"
)

// Server is the HTTP server for the cronrecon API.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a new Server with the given dependencies.
func NewServer(
	addr string,
	s store.SnapshotStore,
	registry func() (*tab.Registry, error),
	takeSnapshot func(ctx context.Context) (*store.Snapshot, error),
	defaultUpcoming int,
) *Server {
	mux := http.NewServeMux()

	a := &api.API{
		Store:           s,
		Registry:        registry,
		TakeSnapshot:    takeSnapshot,
		DefaultUpcoming: defaultUpcoming,
	}
	a.RegisterRoutes(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: corsMiddleware(mux),
		},
	}
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("http server listening on %s", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds permissive CORS headers for development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
