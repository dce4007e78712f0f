package di

import (
	"net/http"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/chat"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/database"
	"github.com/lyrabot/lyra/internal/delivery"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/network"
	"github.com/lyrabot/lyra/internal/osint"
	"github.com/lyrabot/lyra/internal/service"
	"github.com/lyrabot/lyra/internal/session"
	"github.com/lyrabot/lyra/internal/telegram"
)

type Container struct {
	BotClient    telegram.Client
	Logger       logger.Logger
	DB           database.Database
	Cfg          *config.Config
	AI           *ai.ProviderRegistry
	Sessions     *session.Store
	Localizer    *service.Localizer
	Orchestrator *chat.Orchestrator
	Splitter     *delivery.Splitter
	Scanner      *osint.Scanner
	HttpClient   *http.Client
}

func NewContainer(cfg *config.Config) (*Container, error) {
	logCfg := cfg.Log()
	l := logger.NewLogrusLogger(&logCfg)

	if len(cfg.AI().Providers) == 0 {
		l.Warn("No AI providers configured, conversation will be unavailable")
	}

	db, err := database.NewSQLiteDB(cfg, l)
	if err != nil {
		return nil, err
	}

	localizer, err := service.NewLocalizer(cfg.Global().Language)
	if err != nil {
		l.WithError(err).Fatal("Error create localizer")
	}

	container := &Container{
		Logger:    l,
		DB:        db,
		Cfg:       cfg,
		Localizer: localizer,
	}

	httpCfg := network.NewDefaultHTTPClientConfig(cfg.HTTP())
	container.HttpClient = network.SetupHTTPClient(httpCfg, l)

	providerRegistry := ai.NewProviderRegistry(cfg, l, container.HttpClient)
	for _, providerCfg := range cfg.AI().Providers {
		providerName := providerCfg.Name
		var provider ai.Provider

		switch providerCfg.Type {
		case ai.ProviderOpenai:
			provider = ai.NewOpenAICompatibleClient(
				providerName,
				providerCfg.BaseURL,
				providerCfg.ChatURL,
				providerCfg.GetAPIKey(),
				providerCfg.DefaultModel,
				l,
				container.HttpClient,
			)
		case ai.ProviderOllama:
			baseURL, err := ai.ValidateOllamaBaseURL(providerCfg.BaseURL)
			if err != nil {
				l.WithError(err).WithField("provider", providerName).Error("Invalid ollama base URL, skipping provider")
				continue
			}
			provider = ai.NewOllamaClient(
				providerName,
				baseURL,
				providerCfg.DefaultModel,
				l,
				container.HttpClient,
			)
		default:
			l.Error("Unsupported AI provider type: " + providerCfg.Type)
			continue
		}

		providerRegistry.RegisterProvider(providerName, provider)
		l.WithFields(logger.Fields{
			"provider": providerName,
			"type":     providerCfg.Type,
		}).Info("Initialized AI provider")
	}
	container.AI = providerRegistry

	defaultMode, ok := session.ParseMode(cfg.Delivery().DefaultMode)
	if !ok {
		defaultMode = session.ModeUnconstrained
	}
	container.Sessions = session.NewStore(session.Defaults{
		Agent:        cfg.AI().DefaultAgent,
		DeliveryMode: defaultMode,
		HistoryLimit: cfg.Chat().HistoryLimit,
	}, db, l)

	container.Orchestrator = chat.NewOrchestrator(providerRegistry, container.Sessions, localizer, cfg, l)
	container.Splitter = delivery.NewSplitter(cfg.Delivery(), localizer, l)

	scraperClient := network.SetupHTTPClient(network.NewScraperHTTPClientConfig(cfg.Osint().Proxy), l)
	container.Scanner = osint.NewScanner(scraperClient, cfg.Osint().PerKeywordLimit, l)

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram().Token, tgbotapi.APIEndpoint, container.HttpClient)
	if err != nil {
		l.WithError(err).Fatal("Bot API client initialization error")
	}
	l.Info("Bot API initialized")
	container.BotClient = telegram.NewBotClient(api, l)

	return container, nil
}
