package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/adapters/llm"
	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/db/sqlite"
	"github.com/iamwavecut/guardbot/internal/flood"
	"github.com/iamwavecut/guardbot/internal/handlers"
	"github.com/iamwavecut/guardbot/internal/infra"
	"github.com/iamwavecut/guardbot/internal/lifecycle"
	"github.com/iamwavecut/guardbot/internal/observability"
	"github.com/iamwavecut/guardbot/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.GbFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))
	observability.Init()

	infra.GoRecoverable(-1, "main_loop", func() {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}
		defer botAPI.StopReceivingUpdates()
		log.WithField("username", botAPI.Self.UserName).Info("authorized")

		store, err := sqlite.NewSQLiteClient(ctx, cfg.DotPath, "bot.db")
		if err != nil {
			log.WithError(err).Fatalln("cant open database")
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Errorln("cant close database")
			}
		}()

		sched := scheduler.New()
		service := bot.NewService(botAPI, store, cfg, sched)
		gatekeeper := handlers.NewGatekeeper(service)

		bot.RegisterUpdateHandler("admin", handlers.NewAdmin(service))
		bot.RegisterUpdateHandler("settings", handlers.NewSettingsHandler(service))
		bot.RegisterUpdateHandler("moderation", handlers.NewModeration(service, flood.NewTracker(), spamChecker(cfg)))
		bot.RegisterUpdateHandler("gatekeeper", gatekeeper)

		runtime := lifecycle.NewRuntime()
		runtime.Register("scheduler", sched)
		runtime.Register("health_server", infra.NewHealthServer(store, cfg.Port))
		runtime.Register("gatekeeper", gatekeeper)
		if err := runtime.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start runtime")
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := runtime.Stop(stopCtx); err != nil {
				log.WithError(err).Errorln("cant stop runtime")
			}
		}()

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateProcessor := bot.NewUpdateProcessor(service)

		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

		for {
			select {
			case err := <-errorChan:
				if ctx.Err() != nil {
					log.Infoln("shutting down")
					return
				}
				log.WithError(err).Fatalln("bot api get updates error")
			case update := <-updateChan:
				if err := updateProcessor.Process(ctx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
			case <-ctx.Done():
				log.Infoln("shutting down")
				return
			}
		}
	})
}

// spamChecker returns nil (filter disabled) unless an LLM key is set.
func spamChecker(cfg config.Config) handlers.SpamChecker {
	checker := llm.New(cfg.LLM)
	if checker == nil {
		log.Debugln("llm spam check disabled, no api key")
		return nil
	}
	return checker
}
