package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Gemini    GeminiConfig
	Collector CollectorConfig
	Database  DatabaseConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	// LocalStorePath is the device-local sqlite file backing the client's
	// persistence.
	LocalStorePath string
	// StreamTimeoutSec bounds one conversation turn; expiry is treated as a
	// transient stream failure.
	StreamTimeoutSec int
}

type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

type CollectorConfig struct {
	// BaseURL of the remote collector consumed by the client.
	BaseURL string
	// AdminToken authorizes the administrative pull.
	AdminToken string
	// Port the collector binary listens on.
	Port string
	// CorsAllowedOrigins for the collector's HTTP surface.
	CorsAllowedOrigins string
}

type DatabaseConfig struct {
	// Connection is the collector's postgres DSN.
	Connection string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment:      getEnv("GO_ENV", "development"),
			LogFilePath:      getEnv("LOG_FILE_PATH", "aayush-bot.log"),
			LocalStorePath:   getEnv("LOCAL_STORE_PATH", "aayush-bot.db"),
			StreamTimeoutSec: getEnvAsInt("STREAM_TIMEOUT_SEC", 120),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			BaseURL:     getEnv("GEMINI_BASE_URL", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			Temperature: getEnvAsFloat("GEMINI_TEMPERATURE", 0.9),
		},
		Collector: CollectorConfig{
			BaseURL:            getEnv("COLLECTOR_BASE_URL", "http://localhost:3000"),
			AdminToken:         getEnv("COLLECTOR_ADMIN_TOKEN", ""),
			Port:               getEnv("COLLECTOR_PORT", "3000"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
