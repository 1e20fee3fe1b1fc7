package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/gitpulse/internal/adapter/driven/github"
	"github.com/ericfisherdev/gitpulse/internal/adapter/driven/llm"
	"github.com/ericfisherdev/gitpulse/internal/adapter/driven/queue"
	"github.com/ericfisherdev/gitpulse/internal/adapter/driven/scorer"
	sqliteadapter "github.com/ericfisherdev/gitpulse/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/gitpulse/internal/adapter/driving/http"
	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"scorer_url", cfg.ScorerURL,
		"summary_budget", cfg.SummaryBudget,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	eventStore := sqliteadapter.NewEventRepo(db)
	summaryStore := sqliteadapter.NewSummaryRepo(db)

	jobQueue := queue.Select(ctx, cfg.RedisURL)

	// The same client serves both the feed and enrichment ports; they share
	// its conditional-request cache and rate-limit handling.
	feedClient := githubadapter.NewClient(cfg.GitHubToken)
	if cfg.GitHubToken == "" {
		slog.Warn("no github token configured, polling unauthenticated at reduced rate limits")
	}
	scorerClient := scorer.NewClient(cfg.ScorerURL)

	// 6. Wire application services.
	notifier := application.NewNotifier()
	enrichSvc := application.NewEnrichService(feedClient)
	coordinator := application.NewCoordinator(
		eventStore, summaryStore, jobQueue, notifier, enrichSvc, cfg.SummaryBudget,
	)

	pollSvc := application.NewPollService(
		feedClient, scorerClient, enrichSvc, eventStore, notifier, cfg.PollInterval,
	)
	go pollSvc.Start(ctx)

	// 7. Start the summarization worker only when credentials exist.
	// Ingestion and scoring run regardless.
	if cfg.HasCompletionCredentials() {
		completer := llm.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		worker := application.NewWorker(jobQueue, completer, summaryStore, coordinator, notifier)
		go worker.Start(ctx)
		slog.Info("summarization worker started", "model", cfg.AnthropicModel)
	} else {
		slog.Warn("no completion credentials configured, summarization disabled")
	}

	// 8. HTTP server. No WriteTimeout: the stream endpoint holds its
	// connection open indefinitely.
	apiHandler := httphandler.NewHandler(
		eventStore, summaryStore, jobQueue, coordinator, notifier, slog.Default(),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 9. Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}
