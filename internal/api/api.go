// Package api provides the HTTP transport for Visaflow.
//
// It exposes RESTful session endpoints consumed by web clients plus a Twilio
// webhook for the WhatsApp channel. All conversational logic lives in the
// flow package; handlers only translate between HTTP and the turn interface.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/veazyhq/visaflow/internal/flow"
	"github.com/veazyhq/visaflow/internal/messaging"
	"github.com/veazyhq/visaflow/internal/models"
)

// DefaultShutdownTimeout bounds graceful server shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// FlowService is the turn interface the transport consumes.
type FlowService interface {
	ProcessTurn(ctx context.Context, sessionID, userText string) (string, error)
	SubmitDocuments(ctx context.Context, sessionID string, docs []models.ParsedDocument) (*models.ApplicationState, error)
	SessionState(ctx context.Context, sessionID string) (*models.ApplicationState, error)
}

// Server wires the flow service, session state, and messaging into HTTP
// handlers.
type Server struct {
	flowService  FlowService
	stateManager flow.StateManager
	parser       flow.DocumentParser
	msgService   messaging.Service
}

// NewServer creates an API server. msgService may be nil when no WhatsApp
// channel is configured; the webhook then replies inline.
func NewServer(flowService FlowService, stateManager flow.StateManager, parser flow.DocumentParser, msgService messaging.Service) *Server {
	return &Server{
		flowService:  flowService,
		stateManager: stateManager,
		parser:       parser,
		msgService:   msgService,
	}
}

// Handler builds the chi router with CORS enabled for browser clients.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.healthHandler)
	r.Post("/sessions", s.createSessionHandler)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/messages", s.postMessageHandler)
		r.Get("/state", s.getStateHandler)
		r.Delete("/", s.deleteSessionHandler)
		r.Post("/documents", s.postDocumentsHandler)
	})
	r.Post("/webhook/twilio", s.twilioWebhookHandler)
	return r
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		slog.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
