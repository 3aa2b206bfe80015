package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/getcooked/interview-gateway/internal/config"
	"github.com/getcooked/interview-gateway/internal/docstore"
	"github.com/getcooked/interview-gateway/internal/feedback"
	"github.com/getcooked/interview-gateway/internal/httpapi"
	"github.com/getcooked/interview-gateway/internal/identity"
	"github.com/getcooked/interview-gateway/internal/llm"
	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/prompt"
	"github.com/getcooked/interview-gateway/internal/relay"
	"github.com/getcooked/interview-gateway/internal/session"
	"github.com/getcooked/interview-gateway/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("reasoning_provider", cfg.ReasoningProvider).
		Str("speech_provider", cfg.SpeechProvider).
		Str("store_driver", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Interview Gateway starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reasoner, err := llm.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create reasoning client")
	}
	speech, err := tts.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create speech client")
	}

	docs, err := docstore.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open document store")
	}

	store := session.NewStore()
	if ttl := cfg.SessionIdleTTLDuration(); ttl > 0 {
		go store.RunJanitor(ctx, ttl, time.Minute)
		logger.Info().Dur("ttl", ttl).Msg("Idle session sweeping enabled")
	}

	orch := feedback.NewOrchestrator(store, reasoner, docs, feedback.Options{
		MaxTokens:           cfg.FeedbackMaxTokens,
		Temperature:         cfg.FeedbackTemperature,
		EvaluationMaxTokens: cfg.EvaluationMaxTokens,
		ThinkingStatus:      cfg.ThinkingStatus,
		RequireThinking:     cfg.RequireThinkingStatus,
		Summarizer:          prompt.Summarizer{MaxChars: cfg.SummaryMaxChars},
	})
	audio := relay.New(store, speech, relay.Options{
		ChunkSize:    cfg.AudioChunkSize,
		ContentTypes: cfg.AudioContentTypes,
		Timeout:      cfg.SpeechTimeoutDuration(),
	})

	// Create HTTP server
	mux := http.NewServeMux()
	httpapi.New(store, orch, docs).Register(mux)
	mux.Handle("/ws/tts", relay.NewHandler(audio))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	docsReady := func(ctx context.Context) (bool, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := docs.Ping(pingCtx); err != nil {
			return false, err
		}
		return true, nil
	}

	// Readiness makes no billable upstream calls: providers are ready unless their breaker is open
	checks := map[string]observability.HealthCheckFunc{
		"reasoning":      reasoner.Ready,
		"speech":         speech.Ready,
		"document_store": docsReady,
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	if cfg.GRPCHealthPort != "" {
		gh, err := observability.NewGRPCHealth(":"+cfg.GRPCHealthPort, checks)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start gRPC health service")
		}
		go func() {
			if err := gh.Serve(ctx, 10*time.Second); err != nil {
				logger.Error().Err(err).Msg("gRPC health service stopped")
			}
		}()
	}

	headers := identity.Headers{Subject: cfg.IdentitySubjectHeader, Email: cfg.IdentityEmailHeader}

	// Create HTTP server with timeouts. Feedback responses wait on the reasoning service.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      observability.RequestLogging(headers.Middleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ReasoningTimeoutDuration() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("tts_endpoint", fmt.Sprintf("ws://localhost:%s/ws/tts", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := docs.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to close document store")
	}

	logger.Info().Msg("Server exited gracefully")
}
