// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/podmill/podmill-go/internal/core"
	"github.com/podmill/podmill-go/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	db    *sql.DB
	store *store.Store
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		db:    app.DB(),
		store: store.New(app.DB()),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		// Podcast Routes
		r.Post("/podcasts", s.handleCreatePodcast)
		r.Get("/podcasts", s.handleListPodcasts)
		r.Get("/podcasts/{podcastID}", s.handleGetPodcast)
		r.Get("/podcasts/{podcastID}/status", s.handleGetPodcastStatus)
		r.Delete("/podcasts/{podcastID}", s.handleDeletePodcast)
		r.Post("/podcasts/{podcastID}/retry", s.handleRetryPodcast)
		r.Get("/podcasts/{podcastID}/audio", s.handleGetPodcastAudio)
		r.Get("/podcasts/{podcastID}/export", s.handleExportPodcast)
		r.Post("/podcasts/{podcastID}/cover", s.handleUploadPodcastCover)

		// Source Routes
		r.Get("/sources", s.handleListSources)

		// Feed Routes
		r.Post("/feeds", s.handleCreateFeed)
		r.Get("/feeds", s.handleListFeeds)
		r.Delete("/feeds/{feedID}", s.handleDeleteFeed)
		r.Post("/feeds/{feedID}/recheck", s.handleRecheckFeed)
		r.Post("/feeds/recheck-all", s.handleRecheckAllFeeds)

		// Admin Job Triggers
		r.Route("/admin", func(r chi.Router) {
			r.Get("/jobs/status", s.handleGetAdminJobsStatus)
			r.Post("/jobs/run", s.handleRunAdminJob)
			r.Post("/queue/retry-failed", s.handleRetryAllFailed)
		})

		r.Get("/version", s.handleGetVersion)
	})

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
