// Package api serves the dashboard series over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/render"
	"github.com/sells-group/sld-insights/internal/store"
)

// Config tunes the router.
type Config struct {
	Options dashboard.Options
	// DefaultMetros applies when a request names no metro. Empty means all.
	DefaultMetros  []string
	RenderSize     render.Size
	AllowedOrigins []string
}

// Server answers dashboard requests from one loaded dataset.
type Server struct {
	ds    *dashboard.Dataset
	store store.Store
	cfg   Config
	log   *zap.Logger
}

// NewServer creates a Server. st may be nil, which disables the snapshot routes.
func NewServer(ds *dashboard.Dataset, st store.Store, cfg Config) *Server {
	if ds == nil {
		ds = &dashboard.Dataset{}
	}
	return &Server{
		ds:    ds,
		store: st,
		cfg:   cfg,
		log:   zap.L().With(zap.String("component", "api")),
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/metros", s.metros)
		r.Get("/metros/top", s.topMetros)
		r.Get("/correlation", s.correlation)
		r.Get("/flow", s.flow)
		r.Get("/states", s.states)
		r.Get("/sustainability", s.sustainability)
		r.Get("/scatter", s.scatter)
		r.Get("/dashboard", s.fullDashboard)
		r.Get("/charts/{chart}.svg", s.chart)

		r.Route("/snapshots", func(r chi.Router) {
			r.Post("/", s.createSnapshot)
			r.Get("/", s.listSnapshots)
			r.Get("/{id}", s.getSnapshot)
		})
	})

	return r
}

// selection reads repeated metro params, falling back to the configured
// default. all=true selects every record and wins over metro params. A bad
// all value is answered with 400 and ok=false.
func (s *Server) selection(w http.ResponseWriter, r *http.Request) (sel loader.Selection, ok bool) {
	q := r.URL.Query()
	if raw := q.Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "all must be a boolean")
			return loader.Selection{}, false
		}
		if all {
			return loader.NewSelection(), true
		}
	}
	if metros := q["metro"]; len(metros) > 0 {
		return loader.NewSelection(metros...), true
	}
	return loader.NewSelection(s.cfg.DefaultMetros...), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
