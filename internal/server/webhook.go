package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/telegram"
)

// UpdateHandler consumes one webhook update. The server never waits for it:
// the HTTP response goes out as soon as the payload is read.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update telegram.Update)
}

type Server struct {
	router   *chi.Mux
	handler  UpdateHandler
	registry *ai.ProviderRegistry
	secret   string
	addr     string
	logger   logger.Logger
	http     *http.Server
}

func NewServer(cfg *config.Config, handler UpdateHandler, registry *ai.ProviderRegistry, log logger.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		handler:  handler,
		registry: registry,
		secret:   cfg.Telegram().WebhookSecret,
		addr:     cfg.Server().ListenAddr,
		logger:   log,
	}
	s.routes()
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Post("/telegram/{secret}", s.handleWebhook)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/health/backend", s.handleBackendHealth)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleWebhook always acknowledges with 200, even on a secret mismatch or
// a payload it cannot parse. Telegram retries non-200 deliveries, and a
// poison update must not be redelivered forever; a mismatch gets the same
// response as a match so probing the path reveals nothing.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		s.logger.Warn("Webhook secret mismatch")
		s.writeJSON(w, map[string]bool{"ok": true})
		return
	}

	update, err := telegram.DecodeUpdate(r.Body)
	if err != nil {
		s.logger.WithError(err).Warn("Discarding malformed webhook payload")
	} else {
		go s.handler.HandleUpdate(context.Background(), *update)
	}

	s.writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleBackendHealth(w http.ResponseWriter, r *http.Request) {
	provider, model, err := s.registry.ResolveModel("")
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	s.writeJSON(w, map[string]string{
		"status":   "ok",
		"provider": provider.Name(),
		"model":    model,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to write response")
	}
}
