package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shaggydog/internal/http/handlers"
	"shaggydog/internal/infra"
	"shaggydog/internal/infra/geoip"
	"shaggydog/internal/middleware"
)

// Options carry the router's cross-cutting dependencies.
type Options struct {
	Logger          infra.Logger
	Country         geoip.CountryResolver
	Registry        *prometheus.Registry
	RateLimitPerMin int
}

// NewRouter assembles the public HTTP surface. Auth and upload endpoints are
// rate limited per client IP; everything under the JWT group requires a
// bearer token.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(opts.Logger, opts.Country))

	limit := opts.RateLimitPerMin
	if limit <= 0 {
		limit = 60
	}
	authLimiter := middleware.RateLimit(limit, time.Minute)

	r.Get("/healthz", app.Health)
	if opts.Registry != nil {
		r.Method(stdhttp.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter)
		r.Post("/register", app.Register)
		r.Post("/login", app.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.JWTSecret))

		r.Route("/jobs", func(r chi.Router) {
			r.With(authLimiter).Post("/", app.JobsCreate)
			r.Get("/", app.JobsList)
			r.Get("/{job_id}", app.JobStatus)
		})

		r.Get("/image/{job_id}/{slot}", app.ImageSlot)
	})

	return r
}
