package app

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands/agent"
	"github.com/lyrabot/lyra/internal/commands/backend"
	"github.com/lyrabot/lyra/internal/commands/help"
	"github.com/lyrabot/lyra/internal/commands/mode"
	"github.com/lyrabot/lyra/internal/commands/model"
	"github.com/lyrabot/lyra/internal/commands/osint"
	"github.com/lyrabot/lyra/internal/commands/ping"
	"github.com/lyrabot/lyra/internal/commands/reset"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/core"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/server"
	"github.com/lyrabot/lyra/internal/session"
)

type Application struct {
	Logger logger.Logger
	cfg    *config.Config
	bot    *core.Bot
	di     *di.Container
	server *server.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func New() (*Application, error) {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, err
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	container.Logger.Info("DI Container created")

	botInstance := core.NewBot(
		container.BotClient,
		container.Logger,
		cfg,
		container.Sessions,
		container.Orchestrator,
		container.Splitter,
	)
	container.Logger.Info("Bot instance created")

	app := &Application{
		cfg:    cfg,
		bot:    botInstance,
		di:     container,
		server: server.NewServer(cfg, botInstance, container.AI, container.Logger),
		Logger: container.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	app.registerCommands()

	return app, nil
}

func (a *Application) registerCommands() {
	a.bot.RegisterCommand(help.New(a.di))
	a.bot.RegisterCommand(ping.New(a.di))
	a.bot.RegisterCommand(reset.New(a.di))
	a.bot.RegisterCommand(agent.New(a.di))
	a.bot.RegisterCommand(model.New(a.di))
	a.bot.RegisterCommand(backend.New(a.di))
	a.bot.RegisterCommand(mode.New(a.di))
	a.bot.RegisterCommand(osint.New(a.di))
}

func (a *Application) Start() error {
	a.Logger.Info("Starting application")

	a.reportStartup()
	go a.heartbeatLoop()
	go a.osintLoop()

	go func() {
		<-a.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Logger.WithError(err).Error("HTTP server shutdown failed")
		}
	}()

	return a.server.Start()
}

func (a *Application) WaitForShutdown() {
	<-a.ctx.Done()
	a.Logger.Info("Application stopped")
}

// report sends operator-facing notices to the configured report chat,
// chunked like any other reply.
func (a *Application) report(text string) {
	chatID := a.cfg.Telegram().ReportChatID
	if chatID == 0 {
		return
	}
	if err := a.di.Splitter.Deliver(a.ctx, chatID, text, session.ModeUnconstrained, a.di.BotClient); err != nil {
		a.Logger.WithError(err).Error("Failed to send report")
	}
}

func (a *Application) reportStartup() {
	a.report(a.di.Localizer.Localize("startup_notice", map[string]any{
		"Time": time.Now().UTC().Format(time.RFC3339),
	}))
}

func (a *Application) heartbeatLoop() {
	interval := a.cfg.Heartbeat().Interval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.report(a.di.Localizer.Get("heartbeat"))
		}
	}
}

func (a *Application) osintLoop() {
	cfg := a.cfg.Osint()
	if len(cfg.Keywords) == 0 {
		a.Logger.Info("No OSINT keywords configured, scheduler disabled")
		return
	}

	if cfg.RunOnBoot {
		summary := a.di.Scanner.Run(a.ctx, cfg.Keywords)
		a.report(a.di.Localizer.Get("osint_boot") + "\n" + summary)
	}

	if cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			summary := a.di.Scanner.Run(a.ctx, cfg.Keywords)
			a.report(a.di.Localizer.Get("osint_scheduled") + "\n" + summary)
		}
	}
}
