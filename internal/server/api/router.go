// Package api is the backend HTTP API: the user directory sync endpoint
// behind bearer-token authentication and the access guard, plus health
// and metrics endpoints.
package api

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the collaborators of the router. Metrics and DB may be nil.
type Deps struct {
	SecretKey   []byte
	Directory   Directory
	RateLimiter *RateLimiter
	Metrics     *Metrics
	DB          Pinger
	Logger      logging.Logger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger.With("module", "api")
	users := &usersHandler{directory: d.Directory, metrics: d.Metrics, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(d.DB))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(d.SecretKey, logger))
		r.Use(ProtectRoute(logger))
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Middleware)
		}
		r.Post("/users/sync", users.sync)
	})

	return r
}
