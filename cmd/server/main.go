package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/vardius/shutdown"

	"promptgate/internal/config"
	"promptgate/internal/server"
	serviceLLM "promptgate/internal/service/llm"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logger, logFile, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"provider", cfg.LLMProvider,
		"free_query_limit", cfg.FreeQueryLimit,
		"paid_query_limit", cfg.PaidQueryLimit,
		"rate_limit_window", cfg.RateLimitWindow.String(),
	)
	if cfg.HumanToken == config.DefaultHumanToken {
		logger.Warn("HUMAN_TOKEN not set - using the built-in bot gate sentinel")
	}

	// Setup generation backend
	generator, err := serviceLLM.SetupGenerator(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup generation backend: %v", err)
	}

	// Wire stores, services and routes
	app, err := server.Setup(cfg, generator, logger)
	if err != nil {
		log.Fatalf("Failed to setup server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Limiter.Run(ctx)

	logger.Info("services initialized")

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.LLMTimeout + 15*time.Second, // answer + suggestions
		IdleTimeout:  60 * time.Second,
	}

	stop := func() {
		gracefulCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()

		if err := httpServer.Shutdown(gracefulCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		} else {
			logger.Info("gracefully stopped")
		}
		cancel()
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Block until SIGINT/SIGTERM
	shutdown.GracefulStop(stop)
}
