package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salon_reminder_service/internal/app"
	"salon_reminder_service/internal/domain/notify"
	"salon_reminder_service/internal/infra/config"
	idb "salon_reminder_service/internal/infra/database"
	"salon_reminder_service/internal/infra/httpserver"
	"salon_reminder_service/internal/infra/logger"
	inotify "salon_reminder_service/internal/infra/notify"
	"salon_reminder_service/internal/infra/scheduler"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLog := logger.Component("main")
	mainLog.Infof("Configuration loaded. Environment: %s, NotifyChannel: %s", cfg.Environment, cfg.NotifyChannel)

	// Database
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLog.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLog.Info("Database connection established")

	// Repositories and external-collaborator lookups
	ruleRepo := idb.NewPostgresRecurrenceRepository(db)
	apptRepo := idb.NewPostgresAppointmentRepository(db)
	deliveryRepo := idb.NewPostgresDeliveryRepository(db)
	directory := idb.NewPostgresClientDirectory(db)
	services := idb.NewPostgresServiceCatalog(db)

	// Notification gateway
	var gateway notify.Gateway
	switch cfg.NotifyChannel {
	case "telegram":
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			mainLog.Fatalf("FATAL: Could not create Telegram bot: %v", err)
		}
		gateway = inotify.NewTelebotAdapter(bot)
	default:
		gateway = inotify.NewWhatsAppClient(cfg.WhatsAppAPIBaseURL, cfg.WhatsAppPhoneID, cfg.WhatsAppToken)
	}
	mainLog.Infof("Notification gateway initialized (%s)", cfg.NotifyChannel)

	// Services
	ruleSvc := app.NewRuleService(ruleRepo, services, logger.Component("rules"), time.Now)
	materializerSvc := app.NewMaterializerService(ruleRepo, apptRepo, services,
		logger.Component("materializer"), cfg.DefaultStartTime, time.Now)
	windowSvc := app.NewWindowReminderService(apptRepo, deliveryRepo, directory, gateway,
		logger.Component("window"), cfg.WindowSendDelay, cfg.MaxReminderAttempts, time.Now)
	batchSvc := app.NewBatchReminderService(apptRepo, deliveryRepo, directory, services, gateway,
		logger.Component("batch"), cfg.BatchSendDelay, time.Now)
	deliverySvc := app.NewDeliveryService(deliveryRepo, logger.Component("delivery"), time.Now)

	// Scheduler
	reminderScheduler := scheduler.NewReminderScheduler(
		windowSvc, batchSvc, materializerSvc,
		logger.Component("scheduler"),
		cfg.CronSpecWindowCheck,
		cfg.CronSpecBatchMorning,
		cfg.CronSpecBatchEvening,
		cfg.CronSpecMaterialize,
		cfg.MaterializeHorizonDays,
	)
	if err := reminderScheduler.Start(); err != nil {
		mainLog.Fatalf("FATAL: Could not start scheduler: %v", err)
	}

	// HTTP server (webhook + delivery stats + rule CRUD)
	router := httpserver.NewRouter(deliverySvc, ruleSvc, cfg.WebhookVerifyToken, cfg.Environment, logger.Component("http"))
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	go func() {
		mainLog.Infof("HTTP server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLog.Info("Shutting down...")
	reminderScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLog.Errorf("HTTP server shutdown error: %v", err)
	}
	mainLog.Info("Shut down gracefully")
}
