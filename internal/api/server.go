package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/config"
	"github.com/JakeFAU/wi-election-guide/internal/lookup"
	"github.com/JakeFAU/wi-election-guide/internal/maps"
	"github.com/JakeFAU/wi-election-guide/internal/metrics"
	"github.com/JakeFAU/wi-election-guide/internal/session"
)

const requestTimeout = 60 * time.Second

// Geocoder resolves addresses.
type Geocoder interface {
	Suggest(ctx context.Context, query string) (json.RawMessage, error)
	FindDistricts(ctx context.Context, address string) (civic.DistrictLookup, error)
}

// Directory reads the candidate, race and story spreadsheets.
type Directory interface {
	lookup.Directory
	Candidates(ctx context.Context, sheet string) ([]civic.Record, error)
	CandidateByRow(ctx context.Context, id int) (*civic.Record, error)
	CandidateByCandidateID(ctx context.Context, candidateID string) (*civic.Record, error)
	Stories(ctx context.Context) []civic.Record
	StatewideRaces(ctx context.Context) []civic.RaceType
}

// NewsSource returns the latest headlines. It never fails.
type NewsSource interface {
	Latest(ctx context.Context) []civic.Headline
}

// Deps are the services the handlers call.
type Deps struct {
	Geocoder  Geocoder
	Directory Directory
	News      NewsSource
	Lookup    *lookup.Service
	Sessions  *session.Service
	Maps      *maps.Builder
}

// Server wires HTTP handlers to the guide services.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/geocode", s.geocode)
		r.Get("/districts", s.districts)
		r.Get("/lookup", s.lookup)
		r.Get("/news", s.news)

		r.Get("/race-types", s.raceTypes)
		r.Get("/race-types/statewide", s.statewideRaces)
		r.Get("/race-path", s.racePath)
		r.Get("/race-pages/{race_path}/{race_id}", s.racePage)

		r.Route("/races", func(r chi.Router) {
			r.Get("/", s.races)
			r.Get("/{sheet}/districts", s.districtOptions)
			r.Get("/{sheet}/district/{district}", s.raceByDistrict)
			r.Get("/{sheet}/id/{race_id}", s.raceByID)
		})

		r.Route("/candidates", func(r chi.Router) {
			r.Get("/", s.candidates)
			r.Get("/row/{id}", s.candidateByRow)
			r.Get("/{candidate_id}", s.candidateByID)
		})
		r.Get("/stories", s.stories)

		r.Get("/maps/{district_type}/{district}", s.mapConfig)
		r.Post("/maps/bounds", s.mapBounds)

		r.Route("/session", func(r chi.Router) {
			r.Get("/races", s.getSavedRaces)
			r.Put("/races", s.putSavedRaces)
			r.Delete("/races", s.deleteSavedRaces)
			r.Get("/source-race", s.getSourceRace)
			r.Put("/source-race", s.putSourceRace)
			r.Delete("/source-race", s.deleteSourceRace)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Lookup == nil || s.deps.Directory == nil {
		s.writeError(w, http.StatusServiceUnavailable, "services not wired")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
