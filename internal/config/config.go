package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the study-assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	AllowedOrigins []string

	CompletionProvider string
	GroqAPIKey         string
	GroqBaseURL        string
	GroqModel          string
	CompletionTimeout  time.Duration

	DatabaseURL  string
	HistoryLimit int
}

// Load reads environment variables and applies safe defaults. A missing
// GROQ_API_KEY with the groq provider selected is a load error, so the
// process fails at startup rather than on the first request.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "studybot"),
		AllowAnyOrigin:     false,
		CompletionProvider: envOrDefault("COMPLETION_PROVIDER", "groq"),
		GroqAPIKey:         stringsTrimSpace("GROQ_API_KEY"),
		GroqBaseURL:        envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:          envOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		DatabaseURL:        stringsTrimSpace("DATABASE_URL"),
		HistoryLimit:       10,
		CompletionTimeout:  60 * time.Second,
		ShutdownTimeout:    15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("MEMORY_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowedOrigins = splitOrigins(os.Getenv("APP_ALLOWED_ORIGINS"))

	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("MEMORY_HISTORY_LIMIT must be positive")
	}
	if cfg.CompletionTimeout <= 0 {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.CompletionProvider))
	switch provider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return Config{}, fmt.Errorf("GROQ_API_KEY is required when COMPLETION_PROVIDER=groq")
		}
	case "mock":
	default:
		return Config{}, fmt.Errorf("invalid COMPLETION_PROVIDER: %q (expected groq|mock)", cfg.CompletionProvider)
	}
	cfg.CompletionProvider = provider

	return cfg, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
