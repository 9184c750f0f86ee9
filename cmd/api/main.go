package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/studio-concierge/cmd/mainconfig"
	"github.com/wolfman30/studio-concierge/internal/api/router"
	"github.com/wolfman30/studio-concierge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/studio-concierge/internal/config"
	"github.com/wolfman30/studio-concierge/internal/dialog"
	httpmiddleware "github.com/wolfman30/studio-concierge/internal/http/middleware"
	"github.com/wolfman30/studio-concierge/internal/knowledge"
	"github.com/wolfman30/studio-concierge/internal/notify"
	"github.com/wolfman30/studio-concierge/internal/observability/metrics"
	"github.com/wolfman30/studio-concierge/internal/session"
	"github.com/wolfman30/studio-concierge/internal/transcript"
	"github.com/wolfman30/studio-concierge/internal/unanswered"
	"github.com/wolfman30/studio-concierge/internal/webchat"
	"github.com/wolfman30/studio-concierge/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting studio concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	app, err := setupApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		app.Close()
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// application is the assembled HTTP handler plus the resources it owns.
type application struct {
	handler http.Handler
	db      *sql.DB
	redis   *redis.Client
	limiter *httpmiddleware.RateLimiter
}

// Close releases the rate limiter janitor and backend connections.
func (a *application) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func setupApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{}

	kb, err := knowledge.LoadFile(cfg.KnowledgeFile)
	if err != nil {
		return nil, err
	}

	sender, err := setupEmailSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	dispatcher := bootstrap.BuildDispatcher(cfg, sender, logger)

	app.db, err = bootstrap.OpenPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	app.redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	metricsHandler, chatMetrics := setupChatMetrics()

	var (
		sink   dialog.UnansweredSink
		lister unanswered.Lister
	)
	if app.db != nil {
		store := unanswered.NewStore(app.db)
		sink, lister = store, store
	} else {
		logger.Warn("DATABASE_URL not set; unanswered questions will only be logged")
		sink = unanswered.NewLogSink(logger.Component("unanswered"))
	}

	engine := dialog.NewEngine(
		session.NewStore(),
		dialog.NewMachine(kb, dialog.Options{StrictDateTime: cfg.StrictDateTime}),
		dispatcher,
		dialog.WithUnansweredSink(sink),
		dialog.WithMetrics(chatMetrics),
		dialog.WithLogger(logger.Component("dialog")),
	)

	// Left as a nil interface without Redis so the handler skips history.
	var transcripts webchat.TranscriptStore
	if app.redis != nil {
		transcripts = transcript.NewStore(app.redis)
	}

	app.limiter = httpmiddleware.NewRateLimiter(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)

	routerCfg := &router.Config{
		Logger:             logger,
		ChatHandler:        webchat.NewHandler(engine, transcripts, webchat.DefaultGreeting(cfg.StudioName), logger.Component("webchat"), webchat.WithLimiter(app.limiter)),
		UnansweredHandler:  unanswered.NewHandler(lister, logger),
		ChatRateLimiter:    app.limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		AdminAuthIssuer:    cfg.AdminJWTIssuer,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       healthChecks(app.db, app.redis),
	}
	app.handler = router.New(routerCfg)
	return app, nil
}

func setupEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	var sesClient notify.SESAPI
	if cfg.EmailProvider == "ses" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		sesClient = mainconfig.NewSESClient(awsCfg, cfg)
	}
	return bootstrap.BuildEmailSender(cfg, sesClient, logger.Component("email"))
}

// setupChatMetrics registers the chat collectors on a fresh registry so
// /metrics only exposes this process.
func setupChatMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewChatMetrics(reg)
}

func healthChecks(db *sql.DB, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
