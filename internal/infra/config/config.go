package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the reminder engine.
type AppConfig struct {
	DatabaseURL string
	ListenAddr  string
	LogLevel    string
	Environment string

	// Outbound notification channel: "whatsapp" or "telegram".
	NotifyChannel string

	WhatsAppToken      string
	WhatsAppPhoneID    string
	WhatsAppAPIBaseURL string
	WebhookVerifyToken string

	TelegramToken string

	CronSpecWindowCheck  string // precise 24h-window poll
	CronSpecBatchMorning string // first daily batch firing
	CronSpecBatchEvening string // second daily batch firing
	CronSpecMaterialize  string // daily materialization pass

	WindowSendDelay time.Duration
	BatchSendDelay  time.Duration

	DefaultStartTime       string // "HH:MM" used when a rule has no preferred time
	MaterializeHorizonDays int
	MaxReminderAttempts    int
}

// Load reads configuration from environment variables and .env file (if
// present). godotenv.Load does not override variables already set.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	cfg.NotifyChannel = strings.ToLower(getEnv("NOTIFY_CHANNEL", "whatsapp"))
	switch cfg.NotifyChannel {
	case "whatsapp":
		cfg.WhatsAppToken = os.Getenv("WHATSAPP_TOKEN")
		if cfg.WhatsAppToken == "" {
			return nil, fmt.Errorf("WHATSAPP_TOKEN is not set")
		}
		cfg.WhatsAppPhoneID = os.Getenv("WHATSAPP_PHONE_ID")
		if cfg.WhatsAppPhoneID == "" {
			return nil, fmt.Errorf("WHATSAPP_PHONE_ID is not set")
		}
	case "telegram":
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid NOTIFY_CHANNEL %q (want whatsapp or telegram)", cfg.NotifyChannel)
	}

	cfg.WhatsAppAPIBaseURL = getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v19.0")
	cfg.WebhookVerifyToken = os.Getenv("WEBHOOK_VERIFY_TOKEN")
	if cfg.WebhookVerifyToken == "" {
		return nil, fmt.Errorf("WEBHOOK_VERIFY_TOKEN is not set")
	}

	cfg.CronSpecWindowCheck = getEnv("CRON_SPEC_WINDOW_CHECK", "*/30 * * * *")
	cfg.CronSpecBatchMorning = getEnv("CRON_SPEC_BATCH_MORNING", "0 9 * * *")
	cfg.CronSpecBatchEvening = getEnv("CRON_SPEC_BATCH_EVENING", "0 19 * * *")
	cfg.CronSpecMaterialize = getEnv("CRON_SPEC_MATERIALIZE", "0 6 * * *")

	var err error
	cfg.WindowSendDelay, err = getDuration("WINDOW_SEND_DELAY", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.BatchSendDelay, err = getDuration("BATCH_SEND_DELAY", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.DefaultStartTime = getEnv("DEFAULT_START_TIME", "10:00")
	if _, err := time.Parse("15:04", cfg.DefaultStartTime); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_START_TIME: %w", err)
	}

	cfg.MaterializeHorizonDays, err = getInt("MATERIALIZE_HORIZON_DAYS", 30)
	if err != nil {
		return nil, err
	}
	cfg.MaxReminderAttempts, err = getInt("MAX_REMINDER_ATTEMPTS", 10)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
