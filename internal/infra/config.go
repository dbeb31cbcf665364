package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	TelegramBotToken string
	StoragePath      string
	DefaultLocale    string
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiImageModel string
	GeminiVideoModel string
	AdminAPIToken    string
	VideoPollEvery   time.Duration
	VideoMaxPolls    int
	ProgressEvery    time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "imagen-4.0-generate-001"),
		GeminiVideoModel: getEnv("GEMINI_VIDEO_MODEL", "veo-3.0-fast-generate-001"),
		AdminAPIToken:    os.Getenv("ADMIN_API_TOKEN"),
		VideoPollEvery:   time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 20)),
		VideoMaxPolls:    getEnvInt("VIDEO_MAX_POLL_ITERATIONS", 90),
		ProgressEvery:    time.Second * time.Duration(getEnvInt("PROGRESS_THROTTLE_SECONDS", 120)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.VideoMaxPolls <= 0 {
		cfg.VideoMaxPolls = 90
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
