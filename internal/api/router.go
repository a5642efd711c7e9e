package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dcastellanos/ahorro-backend/internal/api/handlers"
	"github.com/dcastellanos/ahorro-backend/internal/auth"
	"github.com/dcastellanos/ahorro-backend/internal/config"
	"github.com/dcastellanos/ahorro-backend/internal/middleware"
)

func NewRouter(cfg config.Config, tm *auth.TokenManager, ph *handlers.PagosHandler, mh *handlers.MetasHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	ah := handlers.NewAuthHandler(tm, cfg.Env)
	r.Post("/auth/token", ah.Token)
	r.Post("/auth/refresh", ah.Refresh)

	am := middleware.NewAuthMiddleware(tm, cfg.Env)
	r.Route("/api", func(r chi.Router) {
		// the mock settlement API runs open in dev; prod requires a bearer token
		if cfg.Env == "prod" {
			r.Use(am.Auth)
		}

		r.Route("/pagos", func(r chi.Router) {
			r.Get("/", ph.List)
			r.Post("/", ph.Create)
			r.Post("/registrar-metodo-pago", ph.RegisterMethod)
			r.Post("/procesar-automaticos", ph.ProcessAutomatic)
			r.Get("/metodos-pago/{usuario_id}", ph.Methods)
			r.Get("/saldo", ph.Saldo)
		})

		r.Route("/metas", func(r chi.Router) {
			r.Get("/", mh.List)
			r.Post("/", mh.Create)
			r.Put("/{id}", mh.Update)
			r.Delete("/{id}", mh.Delete)
			r.Get("/{id}/depositos", mh.ListDeposits)
			r.Post("/{id}/depositos", mh.CreateDeposit)
		})
	})

	return r
}
