// Package server exposes the workout flow over HTTP. It plays the caller role
// for the session, history, and mint components: it serializes mint attempts,
// records mint results in history, and maps mint failures to user-facing
// messages.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/claude/stoicmint/internal/catalog"
	"github.com/claude/stoicmint/internal/history"
	"github.com/claude/stoicmint/internal/mint"
	"github.com/claude/stoicmint/internal/session"
)

// Minter is the mint pipeline as the server consumes it, narrowed to an
// interface so handler tests can fake the chain.
type Minter interface {
	Mint(ctx context.Context, completed history.CompletedWorkout) (*mint.Result, *mint.Error)
}

// Server holds dependencies for HTTP handlers. The session is single-user
// state; sessMu serializes access to it since the HTTP host allows concurrent
// requests. mintBusy serializes mint attempts; a second attempt while one is
// in flight is rejected, not queued.
type Server struct {
	catalog  *catalog.Catalog
	store    *history.Store
	pipeline Minter
	log      *slog.Logger
	router   chi.Router

	sessMu  sync.Mutex
	session *session.Session

	mintMu   sync.Mutex
	mintBusy bool
}

// New creates a new Server with all routes configured.
func New(cat *catalog.Catalog, sess *session.Session, store *history.Store, pipeline Minter, log *slog.Logger) *Server {
	s := &Server{
		catalog:  cat,
		session:  sess,
		store:    store,
		pipeline: pipeline,
		log:      log,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/today", s.handleTodaysWorkout)
		r.Get("/workouts/{id}", s.handleGetWorkout)

		r.Get("/session", s.handleGetSession)
		r.Post("/session/start", s.handleStartSession)
		r.Post("/session/toggle", s.handleToggleExercise)
		r.Post("/session/complete", s.handleCompleteSession)
		r.Post("/session/reset", s.handleResetSession)

		r.Get("/history", s.handleHistory)
		r.Post("/mint", s.handleMint)
	})
}
