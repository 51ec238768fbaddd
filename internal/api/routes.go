// Package api provides HTTP handlers for the POI tile server.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/poimap/server/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Service     *service.TileService
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Tile endpoints
	r.Get("/tiles/city/{z}/{x}/{y}", tileHandler(cfg.Service, service.KindCity))
	r.Get("/tiles/pois/{z}/{x}/{y}", tileHandler(cfg.Service, service.KindPOI))

	// API endpoints
	r.Route("/api", func(r chi.Router) {
		r.Get("/pois", poisHandler(cfg.Service))
		r.Get("/cities", citiesHandler(cfg.Service))
		r.Get("/metadata", metadataHandler(cfg.Service))
		r.Get("/stats", statsHandler(cfg.Service))
	})

	return r
}

// requestLogger logs one line per completed request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
