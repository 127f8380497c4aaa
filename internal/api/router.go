package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Service        *PaymentService
	AllowedOrigins []string
	AdminToken     string
	Gatherer       prometheus.Gatherer
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := NewHandler(cfg.Service, cfg.AdminToken)
	guard := cfg.Service.Guard()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Admin-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", h.Register)
		api.Post("/auth/login", h.Login)

		api.Group(func(auth chi.Router) {
			auth.Use(guard.Middleware(authError))

			auth.Post("/auth/logout", h.Logout)
			auth.Get("/me", h.Profile)
			auth.Get("/balance", h.Balance)

			auth.Get("/identifiers", h.ListIdentifiers)
			auth.Post("/identifiers", h.AddIdentifier)
			auth.Put("/identifiers/{identifier}/default", h.SetDefaultIdentifier)
			auth.Get("/resolve/{identifier}", h.Resolve)

			auth.Post("/payment", h.Pay)
			auth.Post("/transactions", h.Pay)
			auth.Get("/transactions/reference/{referenceId}", h.TransactionByReference)
			auth.Get("/transactions/{accountId}", h.TransactionHistory)
			auth.Get("/stats", h.Stats)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(h.requireAdmin)

			admin.Get("/accounts", h.AdminAccounts)
			admin.Post("/accounts/{id}/unlock", h.AdminUnlock)
			admin.Get("/transactions", h.AdminTransactions)
			admin.Get("/stats", h.AdminStats)
			admin.Post("/reset", h.AdminReset)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Debug("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)))
	})
}
