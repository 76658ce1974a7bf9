package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Stripe configuration
	StripeSecretKey string
	// Ordered list of currently-valid webhook signing secrets. More than one
	// entry allows zero-downtime secret rotation.
	StripeWebhookSecrets []string
	// Override for the Stripe API base URL (tests point this at httptest).
	StripeAPIBase string

	// Brevo operator-alert configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	AlertEmail     string

	// Marketplace backend callback (subscription state change notifications)
	MarketplaceCallbackURL string
	MarketplaceSecret      string

	// Service API key for the read-side endpoints
	ServiceAPIKey string

	DeadLetterTTLHours int
	ServiceName        string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                   getEnv("PORT", "8080"),
		Mode:                   getEnv("GIN_MODE", "debug"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StripeSecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecrets:   getEnvList("STRIPE_WEBHOOK_SECRETS", nil),
		StripeAPIBase:          getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		BrevoAPIKey:            getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:         getEnv("BREVO_FROM_EMAIL", ""),
		AlertEmail:             getEnv("ALERT_EMAIL", ""),
		MarketplaceCallbackURL: getEnv("MARKETPLACE_CALLBACK_URL", ""),
		MarketplaceSecret:      getEnv("MARKETPLACE_WEBHOOK_SECRET", ""),
		ServiceAPIKey:          getEnv("SERVICE_API_KEY", ""),
		DeadLetterTTLHours:     getEnvInt("DEAD_LETTER_TTL_HOURS", 72),
		ServiceName:            getEnv("SERVICE_NAME", "Billing Service"),
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
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvList parses a comma-separated environment variable, dropping empty
// entries but preserving order.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
