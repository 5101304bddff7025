// Package config loads process configuration from environment variables:
// one struct per concern, env-var families with sane defaults, no external
// config library.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration for the demo hosts
// (cmd/workflow-server, cmd/workflow-mcp, cmd/workflow-runner).
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Interp    InterpConfig
	Webhook   WebhookConfig
	Log       LogConfig
	CacheSize int // max parsed-workflow cache entries; default: 256
}

// ServerConfig controls the HTTP server (cmd/workflow-server only).
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the launched Chromium instance.
type BrowserConfig struct {
	Headless bool // default: true

	// Proxy is the default proxy URL for all pages.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists protocol-level resource types to hijack
	// and fail (see driver.blockableResourceTypes).
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// AdBlockJS, if set, is injected on every new document of every page
	// as an additional page-script-level ad-block layer.
	AdBlockJS string
}

// InterpConfig controls interpreter.Options defaults.
type InterpConfig struct {
	MaxRepeats     int // default: 5
	MaxConcurrency int // default: 5
	Debug          bool
	ActionTimeout  time.Duration // default: 30s; workflow-server bounds a whole /run request at 50× this value (the interpreter's per-action deadline is its own fixed default)
}

// WebhookConfig controls optional webhook delivery of run events.
type WebhookConfig struct {
	URL    string // empty disables webhook delivery
	Secret string // HMAC-SHA256 signing secret, optional
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SCRAPEFLOW_HOST", "0.0.0.0"),
			Port: envIntOr("SCRAPEFLOW_PORT", 8080),
			Mode: envOr("SCRAPEFLOW_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("SCRAPEFLOW_HEADLESS", true),
			Proxy:      os.Getenv("SCRAPEFLOW_PROXY"),
			NoSandbox:  envBoolOr("SCRAPEFLOW_NO_SANDBOX", false),
			BrowserBin: os.Getenv("SCRAPEFLOW_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("SCRAPEFLOW_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			AdBlockJS: os.Getenv("SCRAPEFLOW_ADBLOCK_JS"),
		},
		Interp: InterpConfig{
			MaxRepeats:     envIntOr("SCRAPEFLOW_MAX_REPEATS", 5),
			MaxConcurrency: envIntOr("SCRAPEFLOW_MAX_CONCURRENCY", 5),
			Debug:          envBoolOr("SCRAPEFLOW_DEBUG", false),
			ActionTimeout:  envDurationOr("SCRAPEFLOW_ACTION_TIMEOUT", 30*time.Second),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("SCRAPEFLOW_WEBHOOK_URL"),
			Secret: os.Getenv("SCRAPEFLOW_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("SCRAPEFLOW_LOG_LEVEL", "info"),
			Format: envOr("SCRAPEFLOW_LOG_FORMAT", "json"),
		},
		CacheSize: envIntOr("SCRAPEFLOW_CACHE_SIZE", 256),
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
