package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Fetcher FetcherConfig
	Log     LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 5000
	Mode string // "debug", "release", "test"; default: "release"
}

// FetcherConfig selects the upstream site and how it is reached.
// Endpoint, headers, timeout and conversion rate belong to the target preset.
type FetcherConfig struct {
	// Target is the preset name, see target.Lookup.
	Target string // default: "marketplace"

	// ChromeTLS dials HTTPS targets with a Chrome TLS fingerprint.
	ChromeTLS bool // default: true
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: envOr("HOST", "0.0.0.0"),
			Port: envIntOr("PORT", 5000),
			Mode: envOr("GIN_MODE", "release"),
		},
		Fetcher: FetcherConfig{
			Target:    envOr("PRICE_TARGET", "marketplace"),
			ChromeTLS: envBoolOr("CHROME_TLS", true),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
