// Package api exposes the engine over HTTP and the event feed over a
// websocket.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tgeclaim/engine/internal/engine"
)

// Server is the HTTP API server.
type Server struct {
	engine     *engine.Engine
	feed       http.Handler
	mux        *http.ServeMux
	httpServer *http.Server
	started    time.Time
}

// NewServer creates a Server. feed serves GET /ws; it may be nil.
func NewServer(eng *engine.Engine, feed http.Handler) *Server {
	s := &Server{
		engine:  eng,
		feed:    feed,
		mux:     http.NewServeMux(),
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/selection", s.handleSelection)
	s.mux.HandleFunc("POST /api/selection/{id}", s.handleToggle)
	s.mux.HandleFunc("PUT /api/decisions/{id}", s.handleDecide)
	s.mux.HandleFunc("POST /api/settle", s.handleSettle)
	s.mux.HandleFunc("GET /api/results", s.handleResults)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)

	s.mux.HandleFunc("GET /api/legacy", s.handleLegacy)
	s.mux.HandleFunc("POST /api/legacy/selection/{id}", s.handleLegacyToggle)
	s.mux.HandleFunc("POST /api/legacy/settle", s.handleLegacySettle)

	s.mux.HandleFunc("GET /api/wallet", s.handleWallet)
	s.mux.HandleFunc("POST /api/wallet/connect", s.handleConnect)
	s.mux.HandleFunc("POST /api/wallet/disconnect", s.handleDisconnect)

	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("POST /api/dashboard/positions/{id}/claim", s.handleClaimPosition)

	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	s.mux.HandleFunc("DELETE /api/notifications/{id}", s.handleDismiss)

	if s.feed != nil {
		s.mux.Handle("GET /ws", s.feed)
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api_server_started", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("api_server_stopped")
	return nil
}
