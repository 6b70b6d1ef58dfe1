package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/apexhq/salespilot/internal/config"
	"github.com/apexhq/salespilot/internal/crm"
	"github.com/apexhq/salespilot/internal/database"
	"github.com/apexhq/salespilot/internal/draftstore"
	"github.com/apexhq/salespilot/internal/enrich"
	"github.com/apexhq/salespilot/internal/genai"
	"github.com/apexhq/salespilot/internal/kb"
	"github.com/apexhq/salespilot/internal/leadfinder"
	"github.com/apexhq/salespilot/internal/mailer"
	"github.com/apexhq/salespilot/internal/orchestrator"
	"github.com/apexhq/salespilot/internal/planner"
	"github.com/apexhq/salespilot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.Info("starting outreach agent")

	db, err := database.New(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	crmClient := crm.NewClient(crm.Config{
		ClientID:     cfg.CRMClientID,
		ClientSecret: cfg.CRMClientSecret,
		RefreshToken: cfg.CRMRefreshToken,
		APIDomain:    cfg.CRMAPIDomain,
	}, logger)

	gmail := mailer.NewClient(mailer.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
		FromEmail:    cfg.FromEmail,
	}, logger)

	generator := genai.NewGenerator(genai.Config{
		APIKey:             cfg.OpenAIAPIKey,
		Model:              cfg.OpenAIModel,
		SystemPromptPath:   cfg.SystemPromptPath,
		CompanyContextPath: cfg.CompanyContextPath,
	}, logger)

	drafts := draftstore.New(cfg.DraftsPath, logger)
	provider := contextProvider(cfg, logger)

	agentDeps := orchestrator.Deps{
		CRM:     crmClient,
		Mailer:  gmail,
		Gen:     generator,
		Planner: planner.Cadence{},
		Drafts:  drafts,
		DB:      db,
		Logger:  logger,
	}
	if provider != nil {
		agentDeps.Context = provider
	}
	agent := orchestrator.New(agentDeps)

	tgBot, err := telegram.New(telegram.Deps{
		Token:      cfg.TelegramToken,
		ChatID:     cfg.TelegramChatID,
		Agent:      agent,
		Drafts:     drafts,
		DB:         db,
		Finder:     finder(cfg, generator, provider, logger),
		Mailer:     gmail,
		Recipients: cfg.DigestRecipients,
		OutputDir:  cfg.OutputDir,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}
	agent.SetNotifier(tgBot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if _, err := agent.RunDailyCheck(ctx); err != nil {
			logger.Error("startup check failed", "error", err)
		}
	}()

	tgBot.Start(ctx)
	logger.Info("shutdown complete")
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

// finder wires the lead finder when the marketing CRM is configured.
func finder(cfg *config.Config, gen *genai.Generator, provider *enrich.Provider, logger *slog.Logger) *leadfinder.Finder {
	if !cfg.MarketingEnabled() {
		return nil
	}

	deps := leadfinder.FinderDeps{
		Marketing: leadfinder.NewMarketingClient(cfg.MarketingBaseURL, cfg.MarketingAccessToken, logger),
		Gen:       gen,
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
	if provider != nil {
		deps.Context = provider
	}
	return leadfinder.NewFinder(deps)
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
