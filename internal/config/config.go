// Package config loads application configuration from the environment.
// A .env file in the working directory is read first if present, then
// real environment variables take precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string // "development" or "production"
	Port    int
	BaseURL string // absolute origin embedded in email links, e.g. http://localhost:8000

	DBPath string

	SessionSecret string
	SessionTTL    time.Duration

	AllowedOrigins []string

	// Outbound mail (Mailtrap send API). Empty MailAPIKey disables real
	// delivery; the mailer then only logs.
	MailAPIURL    string
	MailAPIKey    string
	MailFromEmail string
	MailFromName  string

	// Avatar storage. Uploads are rejected when the credentials are
	// missing; everything else works without them.
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

// Load reads configuration, applying defaults suitable for local
// development.
func Load() Config {
	// Ignore the error: a missing .env simply means plain env vars.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getenv("PORT", "8000"))
	if err != nil {
		port = 8000
	}

	ttlHours, err := strconv.Atoi(getenv("SESSION_TTL_HOURS", "24"))
	if err != nil || ttlHours <= 0 {
		ttlHours = 24
	}

	return Config{
		Env:     getenv("ENV", "development"),
		Port:    port,
		BaseURL: strings.TrimRight(getenv("BASE_URL", "http://localhost:8000"), "/"),

		DBPath: getenv("DB_PATH", "data/chattings.db"),

		SessionSecret: getenv("SESSION_SECRET", "dev-secret-change-me-now"),
		SessionTTL:    time.Duration(ttlHours) * time.Hour,

		AllowedOrigins: splitOrigins(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),

		MailAPIURL:    getenv("MAIL_API_URL", "https://send.api.mailtrap.io/api/send"),
		MailAPIKey:    getenv("MAIL_API_KEY", ""),
		MailFromEmail: getenv("MAIL_FROM_EMAIL", "noreply@chattings.com"),
		MailFromName:  getenv("MAIL_FROM_NAME", "Chattings"),

		CloudinaryCloudName: getenv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getenv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getenv("CLOUDINARY_API_SECRET", ""),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
