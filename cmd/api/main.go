package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/docs"
	"github.com/BarkinBalci/synthesis-engine/internal/auth"
	"github.com/BarkinBalci/synthesis-engine/internal/cache"
	"github.com/BarkinBalci/synthesis-engine/internal/config"
	"github.com/BarkinBalci/synthesis-engine/internal/handler"
	"github.com/BarkinBalci/synthesis-engine/internal/logger"
	"github.com/BarkinBalci/synthesis-engine/internal/narrative"
	"github.com/BarkinBalci/synthesis-engine/internal/notify/sqs"
	"github.com/BarkinBalci/synthesis-engine/internal/repository/clickhouse"
	"github.com/BarkinBalci/synthesis-engine/internal/scheduler"
	"github.com/BarkinBalci/synthesis-engine/internal/service"
	"github.com/BarkinBalci/synthesis-engine/internal/textgen"
)

const shutdownTimeout = 15 * time.Second

// @title Synthesis Engine API
// @version 1.0
// @description Admin API for platform intelligence queries and reports
// @host localhost:8080
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting synthesis engine",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize ClickHouse client
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	// Initialize repository
	repo := clickhouse.NewRepository(clickhouseClient, log)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Initialize mail queue client
	mailClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Text generation is optional; without a key every narrative uses the fallback
	var generator textgen.Generator
	var breaker handler.BreakerStater
	if cfg.TextGen.APIKey != "" {
		client := textgen.NewAnthropicClient(cfg.TextGen, log)
		generator = client
		breaker = client
	} else {
		log.Warn("No text generation API key configured, narratives will use the fallback")
	}

	responseCache, err := cache.NewMemoryCache(cfg.Synthesis.CacheCapacity)
	if err != nil {
		log.Fatal("Failed to create cache", zap.Error(err))
	}

	// Initialize synthesis service
	synthesisService := service.NewSynthesisService(repo, generator, responseCache, mailClient, service.Options{
		Synthesis: cfg.Synthesis,
		Narrative: narrative.Options{
			MaxTokens:   cfg.TextGen.MaxTokens,
			Temperature: cfg.TextGen.Temperature,
			Timeout:     cfg.TextGen.Timeout,
		},
		Recipients: cfg.Schedule.Recipients,
	}, log)

	if cfg.Schedule.Enabled {
		weekly, err := scheduler.New(cfg.Schedule.WeeklyReportCron, synthesisService, 5*time.Minute, log)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := weekly.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer weekly.Stop()
	}

	limiter, err := auth.NewSubjectLimiter(cfg.Auth.QueryRateLimit, cfg.Auth.QueryBurst)
	if err != nil {
		log.Fatal("Failed to create rate limiter", zap.Error(err))
	}

	// Initialize handler
	h := handler.NewHandler(synthesisService, auth.NewVerifier(cfg.Auth.JWTSecret), limiter, repo, breaker, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}
}
