package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/hearthfin/hearth/pkg/middleware"
	"github.com/hearthfin/hearth/pkg/observability"
)

// SetupRouter configures all routes and returns the HTTP service
func SetupRouter(deps *Dependencies) http.Handler {
	router := mux.NewRouter()

	jwtSecret := []byte(deps.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		deps.Logger.Warn("JWT secret is empty; authentication middleware will reject requests")
	}

	publicPaths := []string{
		"/health",
		"/health/details",
		"/ready",
		"/metrics",
	}

	tracer := otel.GetTracerProvider().Tracer("hearth/api")

	router.Use(middleware.RequestID("X-Request-ID"))
	router.Use(middleware.Tracing(tracer))
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		router.Use(middleware.RateLimit(limiter))
	}
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logging(deps.Logger))
	router.Use(middleware.Auth(jwtSecret, publicPaths...))
	router.Use(observability.MetricsMiddleware)

	registerAPIRoutes(router, deps)
	registerUtilityRoutes(router, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           7200,
	})

	return corsHandler.Handler(router)
}

// registerAPIRoutes registers the versioned API surface
func registerAPIRoutes(router *mux.Router, deps *Dependencies) {
	v1 := router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/imports/analyze", deps.ImportHandler.Analyze).Methods(http.MethodPost)
	v1.HandleFunc("/imports", deps.ImportHandler.Import).Methods(http.MethodPost)
	v1.HandleFunc("/imports/jobs/{id}", deps.ImportHandler.GetJob).Methods(http.MethodGet)

	v1.HandleFunc("/transactions", deps.LedgerHandler.ListTransactions).Methods(http.MethodGet)
	v1.HandleFunc("/transactions/{id}/classify", deps.LedgerHandler.Classify).Methods(http.MethodPost)
	v1.HandleFunc("/transactions/{id}", deps.LedgerHandler.DeleteTransaction).Methods(http.MethodDelete)

	v1.HandleFunc("/patterns", deps.PatternHandler.List).Methods(http.MethodGet)
	v1.HandleFunc("/patterns/feedback", deps.PatternHandler.Feedback).Methods(http.MethodPost)
	v1.HandleFunc("/patterns/merge", deps.PatternHandler.Merge).Methods(http.MethodPost)
	v1.HandleFunc("/patterns/{id}", deps.PatternHandler.Delete).Methods(http.MethodDelete)

	deps.Logger.Info("API routes configured")
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(router *mux.Router, deps *Dependencies) {
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, writeErr := w.Write([]byte("database unhealthy")); writeErr != nil {
				deps.Logger.Error("failed to write health response", slog.Any("error", writeErr))
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			deps.Logger.Error("failed to write health response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health check", "path", "/health")

	// Extended health with per-dependency status
	router.HandleFunc("/health/details", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status string `json:"status"`
			Detail string `json:"detail,omitempty"`
		}
		result := map[string]status{
			"db":    {Status: "ok"},
			"ready": {Status: "ok"},
		}

		if err := deps.DB.Health(); err != nil {
			result["db"] = status{Status: "fail", Detail: err.Error()}
			result["ready"] = status{Status: "fail", Detail: "db unavailable"}
		}

		for _, v := range result {
			if v.Status == "fail" {
				w.WriteHeader(http.StatusServiceUnavailable)
				if err := json.NewEncoder(w).Encode(result); err != nil {
					deps.Logger.Error("failed to encode health details", slog.Any("error", err))
				}
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			deps.Logger.Error("failed to encode health details", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health details", "path", "/health/details")

	router.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			deps.Logger.Error("failed to write readiness response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	if deps.Config.Observability.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
