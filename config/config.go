package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	UsePostgres   bool
	DatabaseURL   string
	DataFile      string
	Timezone      *time.Location
	NotifyTime    string // HH:MM, daily tick
	WebhookURL    string // empty = long polling
	ServerPort    string
}

func Load() (*Config, error) {
	// .env is optional, real deployments use environment variables
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	usePostgres := os.Getenv("USE_POSTGRES") == "true"

	dbURL := os.Getenv("DATABASE_URL")
	if usePostgres && dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when USE_POSTGRES=true")
	}

	dataFile := os.Getenv("DATA_FILE")
	if dataFile == "" {
		dataFile = "./data/db.json"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	notifyTime := os.Getenv("NOTIFY_TIME")
	if notifyTime == "" {
		notifyTime = "09:00"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	return &Config{
		TelegramToken: token,
		UsePostgres:   usePostgres,
		DatabaseURL:   dbURL,
		DataFile:      dataFile,
		Timezone:      tz,
		NotifyTime:    notifyTime,
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		ServerPort:    serverPort,
	}, nil
}
