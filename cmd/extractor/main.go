package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prayer_time_extractor/internal/app"
	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/prayertime"
	domainTelegram "prayer_time_extractor/internal/domain/telegram"
	"prayer_time_extractor/internal/infra/catalog"
	"prayer_time_extractor/internal/infra/config"
	"prayer_time_extractor/internal/infra/database"
	"prayer_time_extractor/internal/infra/esolat"
	"prayer_time_extractor/internal/infra/logger"
	"prayer_time_extractor/internal/infra/metrics"
	"prayer_time_extractor/internal/infra/output"
	"prayer_time_extractor/internal/infra/scheduler"
	"prayer_time_extractor/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/telebot.v3"
)

func main() {
	os.Exit(run())
}

func run() int {
	fmt.Println("JAKIM prayer time extractor starting...")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		return 1
	}

	log, closeLog := logger.New(cfg)
	defer closeLog()
	base := logrus.NewEntry(log)
	mainLogger := base.WithField("component", "main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"range":       cfg.DateRange().String(),
		"concurrency": cfg.Concurrency,
		"max_retries": cfg.MaxRetries,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()
	zones, err := catalog.LoadFile(fs, cfg.ZonesFile)
	if err != nil {
		mainLogger.WithError(err).Error("FATAL: Could not load zone catalog")
		return 1
	}
	mainLogger.WithFields(logrus.Fields{
		"states": len(zones.States()),
		"zones":  zones.Len(),
	}).Info("Zone catalog loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		if _, err := metrics.Serve(ctx, cfg.MetricsAddr, reg, mainLogger); err != nil {
			mainLogger.WithError(err).Error("FATAL: Could not start metrics endpoint")
			return 1
		}
	}

	// Initialize Database Output
	var repo *database.RecordRepository
	if cfg.DatabaseURL != "" {
		db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Error("FATAL: Could not connect to database")
			return 1
		}
		defer db.Close()
		repo = database.NewRecordRepository(db, cfg.DatabaseTable)
		if err := repo.EnsureSchema(ctx); err != nil {
			mainLogger.WithError(err).Error("FATAL: Could not prepare database schema")
			return 1
		}
		mainLogger.WithField("driver", cfg.DatabaseDriver).Info("Database output enabled")
	}

	openSink := func(_ context.Context, started time.Time) (prayertime.Sink, string, error) {
		path := cfg.Output
		if path == "" {
			path = output.FileName(started)
		}
		csvSink, err := output.CreateCSV(fs, path)
		if err != nil {
			return nil, "", err
		}
		if repo == nil {
			return csvSink, path, nil
		}
		return output.MultiSink{csvSink, repo.Sink()}, path + " + " + cfg.DatabaseDriver, nil
	}

	// Initialize Telegram run reports
	var telegramClient domainTelegram.Client
	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, cfg.CronSpec != "", base)
		if err != nil {
			mainLogger.WithError(err).Warn("Run reports disabled")
			bot = nil
		} else {
			telegramClient = telegram.NewTelebotAdapter(bot)
			mainLogger.WithField("admin_id", cfg.AdminTelegramID).Info("Run reports will be sent to Telegram")
		}
	}

	fetcher := esolat.NewClient(esolat.Config{
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.RequestTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, esolat.NewHTTPClient(cfg.Concurrency), m, base)
	extractor := app.NewZoneExtractor(fetcher, base)
	extraction := app.NewExtractionService(extractor, cfg.Concurrency, m, base)
	job := app.NewJobService(extraction, zones, openSink, telegramClient, cfg.AdminTelegramID, base)

	if cfg.CronSpec == "" {
		if _, err := job.Execute(ctx, cfg.DateRange()); err != nil {
			mainLogger.WithError(err).Error("Extraction failed")
			return 1
		}
		return 0
	}

	var fixedRange *calendar.DateRange
	if cfg.DatesPinned {
		r := cfg.DateRange()
		fixedRange = &r
	}
	extractionScheduler := scheduler.NewExtractionScheduler(job, base, cfg.CronSpec, fixedRange)
	if err := extractionScheduler.Start(ctx); err != nil {
		mainLogger.WithError(err).Error("FATAL: Could not start scheduler")
		return 1
	}

	if bot != nil {
		telegram.RegisterAdminHandlers(bot, extractionScheduler, cfg.AdminTelegramID, base)
		go bot.Start() // Start bot in a goroutine so it doesn't block graceful shutdown handling
		mainLogger.Info("Admin command handlers registered.")
	}

	<-ctx.Done() // Block until a signal is received
	mainLogger.Info("Shutting down application...")
	if bot != nil {
		bot.Stop()
	}
	extractionScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
	return 0
}
