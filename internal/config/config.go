package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	DBPath         string
	JWTSecret      string
	AdminEmail     string
	AdminPass      string
	LogLevel       string
	LogFormat      string
	GelfAddr       string
	WebhookWorkers int
	WebhookQueue   int
	WebhookTimeout time.Duration
	CORSOrigin     string
}

// DevSecret is the fallback signing key; Load warns through Warnings when
// it is in use.
const DevSecret = "formdesk-dev-secret-change-me"

// Load reads the configuration from the environment. Variables already
// set win over those in the optional dotenv files.
func Load(dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{
		HTTPAddr:   getEnv("FD_ADDR", ":8080"),
		DBPath:     getEnv("FD_DB_PATH", "data/formdesk.db"),
		JWTSecret:  getEnv("FD_JWT_SECRET", DevSecret),
		AdminEmail: getEnv("FD_ADMIN_EMAIL", ""),
		AdminPass:  getEnv("FD_ADMIN_PASS", ""),
		LogLevel:   getEnv("FD_LOG_LEVEL", "info"),
		LogFormat:  getEnv("FD_LOG_FORMAT", "json"),
		GelfAddr:   getEnv("FD_GELF_ADDR", ""),
		CORSOrigin: getEnv("FD_CORS_ORIGIN", "*"),
	}

	var err error
	if cfg.WebhookWorkers, err = getEnvInt("FD_WEBHOOK_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.WebhookQueue, err = getEnvInt("FD_WEBHOOK_QUEUE", 256); err != nil {
		return nil, err
	}
	if cfg.WebhookTimeout, err = getEnvDuration("FD_WEBHOOK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.WebhookWorkers < 1 {
		return nil, fmt.Errorf("config: FD_WEBHOOK_WORKERS must be at least 1")
	}
	return cfg, nil
}

// Warnings lists settings that are acceptable for development only.
func (c *Config) Warnings() []string {
	var out []string
	if c.JWTSecret == DevSecret {
		out = append(out, "FD_JWT_SECRET is not set, using the development secret")
	}
	if c.AdminEmail != "" && len(c.AdminPass) < 8 {
		out = append(out, "FD_ADMIN_PASS is shorter than 8 characters")
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("config: %s: want a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s: want a positive duration, got %q", key, v)
	}
	return d, nil
}
