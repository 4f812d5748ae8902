// Package app assembles the relay service from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/bootstrap"
	"github.com/m3rciful/qarelay/core/buildinfo"
	corecmd "github.com/m3rciful/qarelay/core/cmd"
	coreconfig "github.com/m3rciful/qarelay/core/config"
	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/core/telegram"
	"github.com/m3rciful/qarelay/core/telegram/router"
	"github.com/m3rciful/qarelay/qa/gateway"
	"github.com/m3rciful/qarelay/qa/httpapi"
	"github.com/m3rciful/qarelay/qa/metrics"
	"github.com/m3rciful/qarelay/qa/relay"
	"github.com/m3rciful/qarelay/qa/seed"
	"github.com/m3rciful/qarelay/qa/store"
)

// App is the assembled relay service.
type App struct {
	cfg        *coreconfig.Config
	infra      *bootstrap.Result
	bot        *tele.Bot
	gateway    *gateway.Telegram
	dispatcher *relay.Dispatcher
	handler    http.Handler
}

var _ corecmd.App = (*App)(nil)

// Bootstrap matches corecmd.Options.Bootstrap.
func Bootstrap(ctx context.Context, cfg *coreconfig.Config) (corecmd.App, error) {
	return Build(ctx, cfg)
}

// Build runs the bootstrap pipeline and wires the relay components.
func Build(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	var seeders []bootstrap.Seeder
	if cfg.Seed.SpeakersFile != "" {
		seeders = append(seeders, seed.Speakers(cfg.Seed.SpeakersFile))
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:      cfg,
		Modules:     bootstrap.Modules{Seeders: seeders},
		OpenStorage: openStorage,
	})
	if err != nil {
		return nil, err
	}
	st, ok := infra.Storage.(store.Store)
	if !ok {
		_ = infra.Close()
		return nil, fmt.Errorf("app: storage %T is not a store", infra.Storage)
	}
	metrics.MustRegister()

	bot, err := telegram.NewBot(telegram.BotOptions{
		Token:  cfg.Telegram.Token,
		APIURL: cfg.Telegram.APIURL,
		Client: telegram.BuildHTTPClient(),
	})
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	gw := gateway.NewTelegram(bot)
	formatter := relay.Formatter{Location: cfg.Location(), EventName: cfg.Relay.EventName}
	notifier := relay.NewNotifier(st, gw, formatter)
	dispatcher := relay.NewDispatcher(st, gw, formatter, relay.DispatcherOptions{
		ConditionalClear: cfg.Relay.ConditionalClear,
	})
	server := httpapi.NewServer(httpapi.Deps{
		Dispatcher:    dispatcher,
		Notifier:      notifier,
		Submitter:     relay.NewSubmitter(st, notifier),
		WebhookSecret: cfg.Telegram.WebhookSecret,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		Location:      cfg.Location(),
		Version:       buildinfo.Version,
		Commit:        buildinfo.Commit,
	})

	logger.App.Info("app assembled",
		slog.String("event", "app.build"),
		slog.String("db", cfg.Database.Driver),
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
	)
	return &App{
		cfg:        cfg,
		infra:      infra,
		bot:        bot,
		gateway:    gw,
		dispatcher: dispatcher,
		handler:    server.Routes(),
	}, nil
}

func openStorage(db *sqlx.DB) bootstrap.Storage {
	if db == nil {
		return store.NewMemory()
	}
	return store.NewPostgres(db)
}

// Handler serves every HTTP route.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Start registers the webhook and the command menu when configured. A
// command menu failure is logged and tolerated.
func (a *App) Start(ctx context.Context) error {
	tg := a.cfg.Telegram
	if tg.RegisterWebhook {
		if err := telegram.RegisterWebhook(ctx, a.bot, telegram.WebhookOptions{
			PublicURL: tg.WebhookURL,
			Secret:    tg.WebhookSecret,
		}); err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	if tg.SetCommands {
		if err := router.InitBotCommands(ctx, a.gateway, a.dispatcher.Registry()); err != nil {
			logger.App.Warn("bot commands not published",
				slog.String("event", "app.commands"),
				slog.String("err", telegram.SanitizeError(err)),
			)
		}
	}
	return nil
}

// Close releases infrastructure.
func (a *App) Close() error {
	return a.infra.Close()
}
