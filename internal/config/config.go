package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Blob backends supported by BlobConfig.Backend.
const (
	BlobBackendDatabase = "database"
	BlobBackendMinIO    = "minio"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	AutoMigrate        bool
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// BlobConfig selects where document payloads are kept.
// "database" stores bytes in documents.file, "minio" stores them as objects.
type BlobConfig struct {
	Backend string
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level             string
	Timezone          string
	SentryDSN         string
	SentryEnvironment string
}

// HTTPConfig holds server-side request handling limits.
type HTTPConfig struct {
	RequestTimeoutSec  int
	ShutdownTimeoutSec int
	MaxUploadBytes     int
	CORSAllowOrigins   string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	HTTP     HTTPConfig
	Log      LogConfig
	Database DatabaseConfig
	Blob     BlobConfig
	MinIO    MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		HTTP: HTTPConfig{
			RequestTimeoutSec:  getEnvInt("REQUEST_TIMEOUT_SEC", 15),
			ShutdownTimeoutSec: getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
			MaxUploadBytes:     getEnvInt("MAX_UPLOAD_BYTES", 10<<20),
			CORSAllowOrigins:   getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Log: LogConfig{
			Level:             getEnv("LOG_LEVEL", "info"),
			Timezone:          getEnv("APP_TIMEZONE", "UTC"),
			SentryDSN:         getEnv("SENTRY_DSN", ""),
			SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Blob: BlobConfig{
			Backend: strings.ToLower(getEnv("BLOB_BACKEND", BlobBackendDatabase)),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

// RequestTimeout returns the per-request deadline. Zero disables it.
func (c HTTPConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ShutdownTimeout returns how long in-flight requests get to finish on shutdown.
func (c HTTPConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

// Location resolves the configured timezone, falling back to UTC.
func (c LogConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
