package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	DatabaseFile        string        // Path to SQLite database file (default: ./portal.db)

	KeycloakBaseURL      string        // Required: Keycloak base URL, e.g. https://sso.example.com
	KeycloakRealm        string        // Required: realm name
	KeycloakClientID     string        // Required: service-account client id
	KeycloakClientSecret string        // Required: service-account client secret
	KeycloakTimeout      time.Duration // Timeout for provider round trips (default: 10s)

	PrivilegedSectors []string // Sectors whose members get the admin role
	AdminJobTitle     string   // Job title that grants the admin role

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

func LoadConfig() Config {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	return Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		DatabaseFile:        getEnvOrDefault("PORTAL_DATABASE_FILE", "portal.db"),

		KeycloakBaseURL:      os.Getenv("KEYCLOAK_BASE_URL"),
		KeycloakRealm:        getEnvOrDefault("KEYCLOAK_REALM", "portal"),
		KeycloakClientID:     os.Getenv("KEYCLOAK_CLIENT_ID"),
		KeycloakClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),
		KeycloakTimeout:      getEnvDurationOrDefault("KEYCLOAK_TIMEOUT", 10*time.Second),

		PrivilegedSectors: getEnvCSVOrDefault("PORTAL_PRIVILEGED_SECTORS", []string{"Recursos Humanos", "Diretoria"}),
		AdminJobTitle:     getEnvOrDefault("PORTAL_ADMIN_JOB_TITLE", "Administrador"),

		SMTPHost:     getEnvOrDefault("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 25),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@portal.local"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}

func getEnvCSVOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
