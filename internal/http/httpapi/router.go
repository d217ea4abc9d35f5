package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recraftgen/internal/http/handlers"
	"recraftgen/internal/infra"
	"recraftgen/internal/middleware"
)

// Options tunes the router. An empty JWTSecret means no token verifies, so
// every generation request runs with the deployment defaults.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
}

func NewRouter(app *handlers.App, logger infra.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.With(middleware.AuthJWT(opts.JWTSecret)).Post("/v1/images/recraft", app.RecraftGenerate)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
