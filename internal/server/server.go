package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"tailscale.com/client/local"

	"github.com/meltforce/vitalsync/internal/ingest/hae"
	"github.com/meltforce/vitalsync/internal/storage"
	vsync "github.com/meltforce/vitalsync/internal/sync"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  storage.Store
	db     *storage.DB // nil when running on an embedded store
	hae    *hae.Provider
	syncer *vsync.Syncer
	log    *slog.Logger
	apiKey string
	lc     *local.Client
	router chi.Router
}

// New creates a new Server with all routes configured. db may be nil when
// the store is not Postgres-backed; the handlers that need it respond 503.
func New(store storage.Store, db *storage.DB, haeProvider *hae.Provider, syncer *vsync.Syncer, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		db:     db,
		hae:    haeProvider,
		syncer: syncer,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/v1/healthz", s.handleHealthz)

	// Ingest endpoint. The exporter app is not on the tailnet, so it
	// authenticates with a shared API key instead.
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/", s.handleIngest)
	})

	// Everything else is identity-scoped (tsnet WhoIs, or dev user)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/api/v1/me", s.handleMe)

		r.Post("/api/v1/sync/initialize", s.handleSyncInitialize)
		r.Post("/api/v1/sync/incremental", s.handleSyncIncremental)
		r.Post("/api/v1/sync/refresh", s.handleSyncRefresh)
		r.Post("/api/v1/sync/clear", s.handleSyncClear)
		r.Get("/api/v1/sync/runs", s.handleSyncRuns)

		r.Get("/api/v1/highscores", s.handleHighscores)
		r.Get("/api/v1/rollup/{granularity}", s.handleRollup)
		r.Get("/api/v1/stats", s.handleStats)
	})
}
