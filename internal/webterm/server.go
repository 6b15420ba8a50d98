// Package webterm serves terminal sessions over websockets. Every connection
// gets its own session; nothing mutable is shared between connections.
package webterm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"storyai/internal/logging"
	"storyai/internal/terminal"
)

// SessionFactory builds a fresh session for one connection. release is
// called when the connection ends and must close the session.
type SessionFactory func() (sess *terminal.Session, release func(), err error)

// Server routes HTTP requests to terminal sessions.
type Server struct {
	factory  SessionFactory
	upgrader websocket.Upgrader

	writeTimeout time.Duration
	active       atomic.Int64
	conns        sync.WaitGroup
}

// NewServer returns a server that opens one session per websocket.
func NewServer(factory SessionFactory) *Server {
	return &Server{
		factory: factory,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeTimeout: 10 * time.Second,
	}
}

// Mount registers the routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/healthz", s.healthz)
	r.Get("/ws", s.terminalWebSocket)
}

// Router returns a router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)
	return r
}

// Active returns the number of open terminal connections.
func (s *Server) Active() int64 {
	return s.active.Load()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// waits for open connections to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// Cancelling ctx ends every request context, which closes open sockets.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Transport("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webterm: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.conns.Wait()
	<-errCh
	logging.Transport("server on %s stopped", addr)
	return err
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Active(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message, details string) {
	resp := map[string]string{"error": message}
	if details != "" {
		resp["details"] = details
	}
	writeJSON(w, code, resp)
}
