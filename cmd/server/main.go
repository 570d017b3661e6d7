package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SBP-techno/CEP-backend/internal/handler"
	"github.com/SBP-techno/CEP-backend/internal/infrastructure/logger"
	"github.com/SBP-techno/CEP-backend/internal/infrastructure/redis"
	"github.com/SBP-techno/CEP-backend/internal/observability/metrics"
	"github.com/SBP-techno/CEP-backend/internal/observability/tracing"
	"github.com/SBP-techno/CEP-backend/internal/recommend"
	"github.com/SBP-techno/CEP-backend/internal/repository"
	"github.com/SBP-techno/CEP-backend/internal/security/audit"
	"github.com/SBP-techno/CEP-backend/internal/security/middleware"
	"github.com/SBP-techno/CEP-backend/internal/security/ratelimit"
	"github.com/SBP-techno/CEP-backend/internal/service"
	"github.com/SBP-techno/CEP-backend/pkg/config"
	"github.com/SBP-techno/CEP-backend/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	log.Info("starting energy platform server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, "energy-backend", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres and ensure the schema
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Connect to Redis for the stats cache
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Initialize repositories
	db := pool.GetDB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	deviceRepo := repository.NewPostgresDeviceRepository(db, log)
	readingRepo := repository.NewPostgresReadingRepository(db, log)

	// 7. Initialize the recommender
	recommender := recommend.NewClient(recommend.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	}, log)

	// 8. Initialize services
	userService := service.NewUserService(userRepo, log, cfg)
	deviceService := service.NewDeviceService(deviceRepo, userRepo, log, cfg)
	readingService := service.NewReadingService(readingRepo, deviceRepo, userRepo, redisClient, log, cfg)
	statsService := service.NewStatsService(readingRepo, userRepo, deviceRepo, redisClient, log, cfg)
	recommendationService := service.NewRecommendationService(recommender, userRepo, deviceRepo, readingRepo, log, cfg)

	// 9. Initialize handlers
	usersHandler := handler.NewUsersHandler(userService, log)
	devicesHandler := handler.NewDevicesHandler(deviceService, log)
	readingsHandler := handler.NewReadingsHandler(readingService, log)
	statsHandler := handler.NewStatsHandler(statsService, log)
	aiHandler := handler.NewAIHandler(recommendationService, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 9a. Security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/users", usersHandler.Create)
	mux.HandleFunc("GET /api/v1/users", usersHandler.List)
	mux.HandleFunc("GET /api/v1/users/{id}", usersHandler.Get)
	mux.HandleFunc("PUT /api/v1/users/{id}", usersHandler.Update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", usersHandler.Delete)

	mux.HandleFunc("POST /api/v1/devices", devicesHandler.Create)
	mux.HandleFunc("GET /api/v1/devices/{id}", devicesHandler.Get)
	mux.HandleFunc("PUT /api/v1/devices/{id}", devicesHandler.Update)
	mux.HandleFunc("DELETE /api/v1/devices/{id}", devicesHandler.Delete)
	mux.HandleFunc("GET /api/v1/users/{id}/devices", devicesHandler.ListByUser)

	mux.HandleFunc("POST /api/v1/readings", readingsHandler.Create)
	mux.HandleFunc("GET /api/v1/users/{id}/readings", readingsHandler.ListByUser)
	mux.HandleFunc("GET /api/v1/devices/{id}/readings", readingsHandler.ListByDevice)

	mux.HandleFunc("GET /api/v1/users/{id}/energy-stats", statsHandler.UserEnergyStats)
	mux.HandleFunc("GET /api/v1/devices/{id}/energy-stats", statsHandler.DeviceEnergyStats)
	mux.HandleFunc("GET /api/v1/users/{id}/daily-stats", statsHandler.UserDailyStats)
	mux.HandleFunc("GET /api/v1/devices/{id}/daily-stats", statsHandler.DeviceDailyStats)
	mux.HandleFunc("GET /api/v1/users/{id}/compare-usage", statsHandler.UserCompareUsage)

	mux.HandleFunc("GET /api/v1/users/{id}/recommendations", aiHandler.Recommendations)
	mux.HandleFunc("GET /api/v1/users/{id}/analyze-usage", aiHandler.AnalyzeUsage)
	mux.HandleFunc("GET /api/v1/devices/{id}/optimization-tips", aiHandler.DeviceTips)
	mux.HandleFunc("GET /api/v1/ai-status", aiHandler.Status)

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> rate limit -> content type -> audit -> CORS
	rootHandler := withRequestID(
		metrics.HTTPMiddleware(
			middleware.RateLimitMiddleware(rateLimiter, log)(
				middleware.ValidateJSONContentType(log)(
					middleware.AuditMiddleware(auditLogger)(handlerWithCORS),
				),
			),
		),
		log,
	)

	// 11. Start HTTP server with tracing on the outermost handler
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	rateLimiter.Stop()
	log.Info("server stopped")
}
