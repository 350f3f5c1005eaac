package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// RouterOptions carries the middleware collaborators the router wires in.
type RouterOptions struct {
	Config  *infra.Config
	Logger  infra.Logger
	Country middleware.CountryLookup
}

// NewRouter assembles the caller-facing surface.
func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.Config.CORSOrigins),
		middleware.Identity,
		middleware.Locale(opts.Config.DefaultLocale, nil, opts.Country),
	)
	if opts.Config.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.Config.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/images/generations", app.ImagesGenerate)
		r.Post("/videos/generations", app.VideosGenerate)
		r.Get("/jobs/{job_id}", app.JobStatus)
	})

	// Generated assets from synchronous providers are served straight from
	// the file store in development.
	if opts.Config.StoragePath != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.Config.StoragePath)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
