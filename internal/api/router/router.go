package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/wolfman30/studio-concierge/internal/http/middleware"
	"github.com/wolfman30/studio-concierge/internal/unanswered"
	"github.com/wolfman30/studio-concierge/internal/webchat"
	"github.com/wolfman30/studio-concierge/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *webchat.Handler
	UnansweredHandler  *unanswered.Handler
	ChatRateLimiter    *httpmiddleware.RateLimiter
	AdminAuthSecret    string
	AdminAuthIssuer    string
	// TrustProxyHeaders enables chi's RealIP. Without it the conversant
	// identity is the TCP peer address.
	TrustProxyHeaders  bool
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// HealthChecks are run by /health; any failure marks the service degraded.
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Route("/api/chat", func(chat chi.Router) {
			chat.Get("/greeting", cfg.ChatHandler.HandleGreeting)
			chat.Get("/history", cfg.ChatHandler.HandleHistory)
			limited := chat.With(httpmiddleware.RateLimit(cfg.ChatRateLimiter))
			// Upgrades count against the limit; frames are limited by the handler.
			limited.Get("/ws", cfg.ChatHandler.HandleWebSocket)
			limited.Post("/", cfg.ChatHandler.HandleChat)
		})
	}

	if cfg.UnansweredHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, httpmiddleware.WithAdminIssuer(cfg.AdminAuthIssuer)))
			admin.Get("/unanswered", cfg.UnansweredHandler.HandleList)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		resp := map[string]any{"status": status}
		if len(components) > 0 {
			resp["checks"] = components
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
