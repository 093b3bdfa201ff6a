package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	AppEnv        string
	Port          string
	JWTSecret     string
	PublicBaseURL string
	Database      DatabaseConfig
	Sheets        SheetsConfig
	Storage       StorageConfig
	Queue         QueueConfig
	Commodities   CommodityConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	Database  string
	LogSilent bool
}

// SheetsConfig holds the Google Sheets connection settings
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	SyncConfigPath  string
}

// StorageConfig holds MinIO/S3 settings for generated reports
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// QueueConfig holds asynq/redis settings
type QueueConfig struct {
	RedisAddr   string
	Concurrency int
}

// CommodityConfig holds catalogue business rules
type CommodityConfig struct {
	// ExcludedCodes are never offered for selection
	ExcludedCodes []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "3210"),
		JWTSecret:     jwtSecret,
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3210"),
		Database: DatabaseConfig{
			Host:      getEnv("PG_HOST", "localhost"),
			Port:      getEnv("PG_PORT", "5432"),
			Username:  getEnv("PG_USERNAME", "postgres"),
			Password:  os.Getenv("PG_PASSWORD"),
			Database:  getEnv("PG_DATABASE", "berrycheck"),
			LogSilent: getEnv("DB_LOG_SILENT", "false") == "true",
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
			SheetName:       getEnv("GOOGLE_SHEETS_SHEET_NAME", DefaultSheetName),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			SyncConfigPath:  os.Getenv("SHEET_SYNC_CONFIG_PATH"),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "inspection-reports"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		Queue: QueueConfig{
			RedisAddr:   os.Getenv("REDIS_ADDR"),
			Concurrency: 2,
		},
		Commodities: CommodityConfig{
			ExcludedCodes: parseList(getEnv("EXCLUDED_COMMODITY_CODES", "MIX")),
		},
	}, nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	}
	return false
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseList(val string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(val, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
