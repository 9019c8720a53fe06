// Package config provides centralized default values for the lead service
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile applies .env overrides without clobbering the real environment.
func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		if err := godotenv.Load(); err != nil {
			log.Printf("Failed to parse .env file: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, redact(key, val), defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// redact hides secrets in override logs
func redact(key, val string) string {
	upper := strings.ToUpper(key)
	for _, marker := range []string{"KEY", "SECRET", "TOKEN", "HASH", "WEBHOOK"} {
		if strings.Contains(upper, marker) {
			return "****"
		}
	}
	return val
}

// Version is stamped at build time with -ldflags "-X .../pkg/config.Version=...".
var Version = "dev"

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; other peers are keyed by socket address.
	TrustedProxies []string

	// Site
	DevMode      bool
	SiteCurrency string

	// Lead delivery
	SheetsWebhookURL         string
	TrackingSheetsWebhookURL string
	SheetsTimeout            time.Duration
	BeaconForwardTimeout     time.Duration

	// Turnstile
	TurnstileSecretKey string
	TurnstileVerifyURL string

	// Instance-local stores
	IdempotencyTTL  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	SweepInterval   time.Duration

	// Database
	DBDriver                 string
	SQLitePath               string
	TursoDatabaseURL         string
	TursoAuthToken           string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// Email
	ResendAPIKey     string
	BrevoAPIKey      string
	BrevoAPIURL      string
	EmailFrom        string
	EmailFromName    string
	LeadNotifyEmail  string
	EmailSendTimeout time.Duration

	// Admin
	AdminPasswordHash string
	JWTSecret         string
	AdminTokenTTL     time.Duration

	// Logging
	LogDirectory string
	LogToFile    bool
	LogJSON      bool
	LogLevel     string
	// LogStreamBuffer sizes the admin live log queue.
	LogStreamBuffer int
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:4321", // Astro dev server
		"http://127.0.0.1:4321",
		"http://[::1]:4321",
	})

	// Site
	TrustedProxies = getEnvList("TRUSTED_PROXIES", []string{"127.0.0.1", "::1"})

	DevMode = getEnvBool("DEV_MODE", false)
	SiteCurrency = getEnvString("SITE_CURRENCY", "GBP")

	// Lead delivery
	SheetsWebhookURL = getEnvString("GOOGLE_SHEETS_WEBHOOK", "")
	TrackingSheetsWebhookURL = getEnvString("TRACKING_SHEETS_WEBHOOK", "")
	SheetsTimeout = getEnvDuration("SHEETS_TIMEOUT", 10*time.Second)
	BeaconForwardTimeout = getEnvDuration("BEACON_FORWARD_TIMEOUT", 5*time.Second)

	// Turnstile
	TurnstileSecretKey = getEnvString("TURNSTILE_SECRET_KEY", "")
	TurnstileVerifyURL = getEnvString("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	// Instance-local stores
	IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	RateLimitMax = getEnvInt("RATE_LIMIT_MAX", 10)
	RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	SweepInterval = getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	SQLitePath = getEnvString("SQLITE_PATH", "db/leads.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	// Email
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	BrevoAPIKey = getEnvString("BREVO_API_KEY", "")
	BrevoAPIURL = getEnvString("BREVO_API_URL", "https://api.brevo.com/v3/smtp/email")
	EmailFrom = getEnvString("EMAIL_FROM", "noreply@example.com")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "Lead Desk")
	LeadNotifyEmail = getEnvString("LEAD_NOTIFY_EMAIL", "")
	EmailSendTimeout = getEnvDuration("EMAIL_SEND_TIMEOUT", 15*time.Second)

	// Admin
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminTokenTTL = getEnvDuration("ADMIN_TOKEN_TTL", 12*time.Hour)

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogJSON = getEnvBool("LOG_JSON", true)
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogStreamBuffer = getEnvInt("LOG_STREAM_BUFFER", 1000)
}
