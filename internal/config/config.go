package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	// InitBalance is the wallet balance granted to new accounts.
	InitBalance float64

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	UploadDir     string
	UploadBaseURL string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "mentorway-backend"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		SMTPHost:      strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:      fallback(os.Getenv("SMTP_PORT"), "587"),
		SMTPUser:      strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		EmailFrom:     fallback(os.Getenv("EMAIL_FROM"), "no-reply@mentorway.app"),
		UploadDir:     fallback(os.Getenv("UPLOAD_DIR"), "uploads"),
		UploadBaseURL: fallback(os.Getenv("UPLOAD_BASE_URL"), "/uploads"),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	balance := fallback(os.Getenv("INIT_BALANCE"), "0")
	if initBalance, err := strconv.ParseFloat(balance, 64); err == nil && initBalance >= 0 {
		cfg.InitBalance = initBalance
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
