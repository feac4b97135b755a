package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mtb-digital/banking-assistant/internal/banking"
	"github.com/mtb-digital/banking-assistant/internal/chatbot"
	"github.com/mtb-digital/banking-assistant/internal/config"
	"github.com/mtb-digital/banking-assistant/internal/flow"
	"github.com/mtb-digital/banking-assistant/internal/llm"
	"github.com/mtb-digital/banking-assistant/internal/prompts"
	"github.com/mtb-digital/banking-assistant/internal/services"
	"github.com/mtb-digital/banking-assistant/internal/session"
	"github.com/mtb-digital/banking-assistant/internal/telemetry"
	"github.com/mtb-digital/banking-assistant/internal/tools"
)

// app holds the assembled application.
type app struct {
	cfg     *config.Config
	bot     *chatbot.Chatbot
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// buildApp assembles the chatbot core from configuration.
func buildApp(cfg *config.Config) (*app, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := telemetry.NewLogger(os.Stderr, level)

	var client banking.Client
	switch cfg.Banking.Mode {
	case "real":
		client = banking.NewRealClient(banking.RealClientConfig{
			BaseURL:   cfg.Banking.BaseURL,
			Secret:    cfg.Banking.Secret,
			ChannelID: cfg.Banking.ChannelID,
			Timeout:   cfg.Banking.Timeout.Std(),
		}, logger)
	default:
		client = banking.NewMockClient(logger)
	}

	authSvc := services.NewAuthService(client, logger)
	accountSvc := services.NewAccountService(client, authSvc, logger)
	mobileSvc := services.NewMobileAuthService(client, logger)

	registry := tools.NewRegistry()
	for _, svc := range []tools.Service{authSvc, accountSvc, mobileSvc} {
		if err := registry.RegisterService(svc); err != nil {
			return nil, fmt.Errorf("registering %s service: %w", svc.Domain(), err)
		}
	}

	promptMgr, err := prompts.NewManager(cfg.Prompts.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}
	systemPrompt := promptMgr.Compose(cfg.Prompts.Domains...)

	llmClient, model := llm.NewClientForModel(cfg.LLM.Model)
	metrics := telemetry.NewMetrics()

	bot, err := chatbot.New(chatbot.Config{
		LLM:           llmClient,
		Model:         model,
		MaxTokens:     cfg.LLM.MaxTokens,
		Registry:      registry,
		Flows:         flow.NewManager(logger),
		Contexts:      session.NewContextManager(logger),
		Auth:          session.NewAuthManager(cfg.Session.AuthTTL.Std()),
		Conversations: session.NewConversationManager(systemPrompt),
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building chatbot: %w", err)
	}

	return &app{cfg: cfg, bot: bot, metrics: metrics, logger: logger}, nil
}
