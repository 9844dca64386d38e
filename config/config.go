package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds settings read from the environment (and .env when present).
type Config struct {
	Port           string
	DatabaseURL    string
	JWTSecret      string
	FrontendURL    string
	AllowedOrigins []string

	ResendAPIKey     string
	FromEmail        string
	EmailAPIEndpoint string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDEmail      string

	InviteCooldown time.Duration
	AdminEmails    []string
	RateLimit      int
}

// Load reads .env if present, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		FrontendURL:      strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),
		FromEmail:        getEnv("FROM_EMAIL", "DayClap <noreply@dayclap.app>"),
		EmailAPIEndpoint: getEnv("EMAIL_API_ENDPOINT", "https://api.resend.com/emails"),
		VAPIDPublicKey:   os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:  os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDEmail:       getEnv("VAPID_EMAIL", "mailto:admin@dayclap.app"),
		InviteCooldown:   time.Duration(getEnvInt("INVITE_COOLDOWN_SECONDS", 300)) * time.Second,
		AdminEmails:      splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),
		RateLimit:        getEnvInt("RATE_LIMIT", 100),
	}

	cfg.AllowedOrigins = append([]string{cfg.FrontendURL}, splitList(os.Getenv("CORS_ALLOW_ORIGINS"))...)
	return cfg
}

// IsAdmin reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("⚠️ Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
