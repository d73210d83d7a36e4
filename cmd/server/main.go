package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/haptickrill/krill/internal/cache"
	"github.com/haptickrill/krill/internal/db"
	"github.com/haptickrill/krill/internal/handlers"
	"github.com/haptickrill/krill/internal/logger"
	"github.com/haptickrill/krill/internal/repositories"
	"github.com/haptickrill/krill/internal/services"
)

func main() {
	_ = godotenv.Load()

	zlog, err := logger.New()
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	// Database connection
	config := db.NewConfig()
	database, err := db.Connect(config)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		zlog.Fatal("failed to migrate schema", zap.Error(err))
	}
	zlog.Info("database connection established")

	// Price cache: in-process FIFO tier, with the shared Redis tier layered
	// behind it when configured.
	var priceCache cache.PriceCache = cache.NewMemoryPriceCache(cache.DefaultCapacity)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisCache, err := cache.NewRedisPriceCache(&cache.RedisConfig{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		}, zlog)
		if err != nil {
			zlog.Warn("redis unavailable, using in-memory cache only", zap.Error(err))
		} else {
			defer redisCache.Close()
			priceCache = cache.NewLayered(priceCache, redisCache)
			zlog.Info("shared redis cache tier enabled", zap.String("addr", addr))
		}
	}

	// Repositories
	portfolioRepo := repositories.NewPortfolioRepository(database)
	positionRepo := repositories.NewPositionRepository(database)
	priceRepo := repositories.NewPriceRepository(database)

	// Services. The rate limiter is process-wide: the provider enforces an
	// account-level quota, so every caller shares this one instance.
	limiter := services.NewRateLimiter()
	source := services.NewMarketstackClient(services.NewMarketstackConfigFromEnv(), priceRepo, limiter, zlog)
	resolver := services.NewPriceResolver(priceCache, priceRepo, source, zlog)
	valuation := services.NewValuationService(priceRepo, source, zlog)
	portfolioService := services.NewPortfolioService(portfolioRepo, positionRepo, valuation, zlog)
	securityService := services.NewSecurityService(priceRepo, positionRepo, source, zlog)
	refreshService := services.NewRefreshService(positionRepo, priceRepo, source, zlog)

	// Handlers
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	priceHandler := handlers.NewPriceHandler(priceRepo, resolver, securityService)
	jobsHandler := handlers.NewJobsHandler(refreshService)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"krill"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/portfolios", portfolioHandler.HandleCreate).Methods(http.MethodPost)
	api.HandleFunc("/portfolios", portfolioHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/portfolios/{id}", portfolioHandler.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/portfolios/{id}", portfolioHandler.HandleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/portfolios/{id}/positions", portfolioHandler.HandleAddPosition).Methods(http.MethodPost)
	api.HandleFunc("/portfolios/{id}/positions/{positionId}", portfolioHandler.HandleDeletePosition).Methods(http.MethodDelete)
	api.HandleFunc("/prices/daily", priceHandler.HandleDaily).Methods(http.MethodGet)
	api.HandleFunc("/prices/close", priceHandler.HandleClose).Methods(http.MethodGet)
	api.HandleFunc("/tools/security/{symbol}", priceHandler.HandleSecurityExists).Methods(http.MethodGet)
	api.HandleFunc("/jobs/refresh-prices", jobsHandler.HandleRefreshPrices).Methods(http.MethodPost)

	// Nightly refresh of every tracked ticker, after US markets settle.
	schedule := os.Getenv("REFRESH_CRON")
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	scheduler := cron.New()
	_, err = scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := refreshService.RefreshTracked(ctx); err != nil {
			zlog.Error("scheduled price refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		zlog.Fatal("invalid refresh schedule", zap.String("schedule", schedule), zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	zlog.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, router); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
