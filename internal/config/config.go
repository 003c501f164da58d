package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server modes. LOCAL and DEVELOPMENT are shown as non-production
// environments in the dashboard.
const (
	ServerModeLocal       = "LOCAL"
	ServerModeDevelopment = "DEVELOPMENT"
	ServerModeProduction  = "PRODUCTION"
)

// Config holds application configuration
type Config struct {
	// Server
	Env              string
	Port             string
	ServerMode       string
	DocsEnabled      bool
	AdminRedirectURL string

	// Auth
	JWTSecret        string
	JWTExpirationDur time.Duration
	ExternalAPIKey   string

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	serverMode := strings.ToUpper(getEnv("SERVER_MODE", ServerModeLocal))

	config := &Config{
		// Server
		Env:              getEnv("ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		ServerMode:       serverMode,
		DocsEnabled:      getEnvBool("DOCS_ENABLED", serverMode != ServerModeProduction),
		AdminRedirectURL: getEnv("ADMIN_REDIRECT_URL", ""),

		// Auth
		JWTSecret:      getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		ExternalAPIKey: getEnv("EXTERNAL_API_KEY", ""),

		// Logging
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the process configuration. Tests use it to run without
// environment variables.
func Set(c *Config) {
	appConfig = c
}

// IsProduction reports whether the server runs in PRODUCTION mode.
func (c *Config) IsProduction() bool {
	return c.ServerMode == ServerModeProduction
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}
