package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"assetgen/internal/http/handlers"
	appmw "assetgen/internal/middleware"
)

// Config tunes the router's outer middlewares. The zero value disables CORS
// and rate limiting, which suits tests and local development.
type Config struct {
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

func NewRouter(app *handlers.App, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		appmw.Logger(app.Logger),
	)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(appmw.CORS(cfg.AllowedOrigins))
	}
	if cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(appmw.RateLimit(cfg.RateLimit, window))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/batches", func(r chi.Router) {
		r.Post("/", app.SubmitBatch)
		r.Get("/", app.ListBatches)
		r.Get("/{id}", app.GetBatch)
		r.Post("/{id}/cancel", app.CancelBatch)
		r.Get("/{id}/download", app.DownloadBatch)
	})

	r.Post("/v1/generate", app.Generate)

	return r
}
