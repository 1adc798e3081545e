package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the inventory API.
type Config struct {
	ServiceName string
	Port        string
	LogLevel    string

	// --- Google OAuth ---
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	// --- Sheet Layout ---
	SheetID        string
	SheetName      string
	DataStartRow   int
	SheetsEndpoint string // empty = Google's default endpoint

	// --- Sessions ---
	JWTSecret    string
	SessionTTL   time.Duration
	SessionStore string // "memory" or "mysql"
	DBDSN        string

	// --- Front-end ---
	AllowedOrigin string
	QRCodeSize    int
	ScannerFPS    int
}

// Load reads configuration from the environment. Call godotenv.Load first
// if values should come from a .env file.
func Load() *Config {
	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "qr-inventory"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectURL:   getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/v1/auth/callback"),

		SheetID:        getEnv("GOOGLE_SHEET_ID", ""),
		SheetName:      getEnv("SHEET_NAME", "Sheet1"),
		DataStartRow:   getEnvInt("DATA_START_ROW", 2),
		SheetsEndpoint: getEnv("SHEETS_ENDPOINT", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		SessionTTL:   getEnvDuration("SESSION_TTL", 72*time.Hour),
		SessionStore: strings.ToLower(getEnv("SESSION_STORE", "memory")),
		DBDSN:        getEnv("DB_DSN", ""),

		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),
		QRCodeSize:    getEnvInt("QR_CODE_SIZE", 256),
		ScannerFPS:    getEnvInt("SCANNER_FPS", 10),
	}
}

// Validate reports the first setting that would stop the service from working.
func (c *Config) Validate() error {
	if c.SheetID == "" {
		return errors.New("GOOGLE_SHEET_ID is not set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	// Row 1 is reserved for headers.
	if c.DataStartRow < 2 {
		return errors.New("DATA_START_ROW must be 2 or greater")
	}
	switch c.SessionStore {
	case "memory":
	case "mysql":
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required when SESSION_STORE=mysql")
		}
	default:
		return errors.New("SESSION_STORE must be memory or mysql")
	}
	if c.ScannerFPS <= 0 {
		return errors.New("SCANNER_FPS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
