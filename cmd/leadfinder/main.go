package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/apexhq/salespilot/internal/config"
	"github.com/apexhq/salespilot/internal/enrich"
	"github.com/apexhq/salespilot/internal/genai"
	"github.com/apexhq/salespilot/internal/kb"
	"github.com/apexhq/salespilot/internal/leadfinder"
	"github.com/apexhq/salespilot/internal/mailer"
)

// One-shot batch: scan marketing contacts, write the digest, email it.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)

	if !cfg.MarketingEnabled() {
		logger.Error("MARKETING_ACCESS_TOKEN is not set")
		os.Exit(1)
	}

	generator := genai.NewGenerator(genai.Config{
		APIKey:             cfg.OpenAIAPIKey,
		Model:              cfg.OpenAIModel,
		SystemPromptPath:   cfg.SystemPromptPath,
		CompanyContextPath: cfg.CompanyContextPath,
	}, logger)

	deps := leadfinder.FinderDeps{
		Marketing: leadfinder.NewMarketingClient(cfg.MarketingBaseURL, cfg.MarketingAccessToken, logger),
		Gen:       generator,
		Criteria: leadfinder.Criteria{
			MinEmployeeSize:    cfg.MinEmployeeSize,
			Industries:         cfg.TargetIndustries,
			Countries:          cfg.TargetCountries,
			JobTitles:          cfg.TargetJobTitles,
			StaleThresholdDays: cfg.StaleThresholdDays,
		},
		LifecycleStages: cfg.TargetLifecycleStages,
		TopN:            cfg.TopLeadsCount,
		Logger:          logger,
	}
	if provider := contextProvider(cfg, logger); provider != nil {
		deps.Context = provider
	}
	finder := leadfinder.NewFinder(deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	digest, err := finder.Run(ctx, time.Now())
	if err != nil {
		logger.Error("lead finder run failed", "error", err)
		os.Exit(1)
	}

	htmlPath, err := digest.WriteFiles(cfg.OutputDir)
	if err != nil {
		logger.Error("failed to write digest", "error", err)
		os.Exit(1)
	}
	logger.Info("digest written", "path", htmlPath)

	if len(cfg.DigestRecipients) > 0 {
		emailDigest(ctx, cfg, digest, logger)
	}
}

func emailDigest(ctx context.Context, cfg *config.Config, digest *leadfinder.Digest, logger *slog.Logger) {
	gmail := mailer.NewClient(mailer.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
		FromEmail:    cfg.FromEmail,
	}, logger)

	body, err := digest.RenderHTML()
	if err != nil {
		logger.Error("failed to render digest email", "error", err)
		return
	}

	subject := fmt.Sprintf("Engaged leads digest - %s", digest.GeneratedAt.Format("Jan 2"))
	for _, recipient := range cfg.DigestRecipients {
		if err := gmail.Send(ctx, recipient, subject, body, nil); err != nil {
			logger.Error("failed to email digest", "recipient", recipient, "error", err)
			continue
		}
		logger.Info("digest emailed", "recipient", recipient)
	}
}

// contextProvider wires the optional enrichment and knowledge-base clients.
func contextProvider(cfg *config.Config, logger *slog.Logger) *enrich.Provider {
	var apollo *enrich.ApolloClient
	if cfg.ApolloEnabled() {
		apollo = enrich.NewApolloClient(cfg.ApolloAPIKey, logger)
	}

	var fireflies *enrich.FirefliesClient
	if cfg.FirefliesEnabled() {
		fireflies = enrich.NewFirefliesClient(cfg.FirefliesAPIKey, logger)
	}

	var kbClient *kb.Client
	if cfg.KnowledgeBaseEnabled() {
		kbClient = kb.NewClient(cfg.ChromaURL, cfg.ChromaCollection, logger)
	}

	if apollo == nil && fireflies == nil && kbClient == nil {
		return nil
	}
	return enrich.NewProvider(apollo, fireflies, kbClient, logger)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
