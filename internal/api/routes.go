package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AlmogShaul/bar-mitzva/internal/config"
)

// requestTimeout bounds every route except the practice proxy, which waits
// on speech recognition.
const requestTimeout = 30 * time.Second

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET    /health
//	GET    /metrics
//	POST   /api/v1/resolve
//	GET    /api/v1/selection
//	PUT    /api/v1/selection                  (API key)
//	DELETE /api/v1/selection                  (API key)
//	GET    /api/v1/selection/verses
//	GET    /api/v1/selection/calendar.ics
//	GET    /api/v1/portions
//	GET    /api/v1/portions/{name}
//	GET    /api/v1/portions/{name}/verses
//	POST   /api/v1/practice/recordings
//	POST   /api/v1/practice/compare
//	GET    /api/v1/practice/results/{session}
//	GET    /api/v1/practice/plot/{session}
//	GET    /api/v1/practice/audio/{chapter}_{verse}
func SetupRoutes(h *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger, h.Metrics),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Post("/resolve", h.Resolve)

			r.Route("/selection", func(r chi.Router) {
				r.Get("/", h.GetSelection)
				r.Get("/verses", h.GetSelectionVerses)
				r.Get("/calendar.ics", h.GetSelectionCalendar)

				r.Group(func(r chi.Router) {
					r.Use(AuthMiddleware(cfg, logger))
					r.Put("/", h.PutSelection)
					r.Delete("/", h.DeleteSelection)
				})
			})

			r.Route("/portions", func(r chi.Router) {
				r.Get("/", h.ListPortions)
				r.Get("/{name}", h.GetPortion)
				r.Get("/{name}/verses", h.GetPortionVerses)
			})
		})

		r.Route("/practice", func(r chi.Router) {
			r.Post("/recordings", h.UploadRecording)
			r.Post("/compare", h.CompareRecording)
			r.Get("/results/{session}", h.GetResults)
			r.Get("/plot/{session}", h.GetPlot)
			r.Get("/audio/{chapter}_{verse}", h.GetAudio)
		})
	})

	return r
}
