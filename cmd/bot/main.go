package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"verde/internal/compare"
	"verde/internal/config"
	"verde/internal/logging"
	"verde/internal/scheduler"
	"verde/internal/session"
	"verde/internal/storage"
	"verde/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logrus.WithError(err).Warn(".env file not found")
	}

	cfg, err := config.New()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if cfg.TelegramBotToken == "" {
		logrus.Fatal("TELEGRAM_BOT_TOKEN must be set")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("failed to init logger")
	}

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			logger.WithError(err).Warn("failed to init file recorder")
		} else {
			rec = fr
		}
	}

	comparer, err := compare.FromConfig(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to create comparer")
	}

	opts := []session.Option{session.WithLogger(logger)}
	if rec != nil {
		opts = append(opts, session.WithRecorder(rec))
	}
	tracker := session.NewTracker(comparer, opts...)

	bot, err := telegram.New(cfg.TelegramBotToken, tracker, rec, cfg.AdminUserID, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create bot")
	}

	sched := scheduler.New(cfg.ReportCron, logger)
	sched.SetReportFunction(bot.SendDailyReport)
	if err := sched.Start(); err != nil {
		logger.WithError(err).Error("failed to start scheduler")
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("mode", cfg.CompareMode).WithField("api_url", cfg.APIURL).Info("starting verde bot")
	bot.Start(ctx)
	tracker.Drain()
	logger.Info("bot stopped")
}
