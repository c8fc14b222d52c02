package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig
	Capture CaptureConfig
	Log     LogConfig
	Webhook WebhookConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all navigations.
	Proxy string

	// ViewportWidth and ViewportHeight set the layout viewport. The captured
	// image is ViewportWidth wide and as tall as the document.
	ViewportWidth  int // default: 1366
	ViewportHeight int // default: 768

	// UserAgent overrides the browser's user agent when set.
	UserAgent string
}

// CaptureConfig controls how each page is loaded and captured.
type CaptureConfig struct {
	// NavigationTimeout bounds navigation plus the wait for network idle
	// (no more than two connections for at least 500ms).
	NavigationTimeout time.Duration // default: 60s

	// SettleDelay is the pause after scrolling to the top, before capture.
	SettleDelay time.Duration // default: 800ms

	// Stealth enables anti-bot-detection evasions.
	Stealth bool // default: false

	// BlockAds blocks requests to well-known ad and tracking domains.
	BlockAds bool // default: false

	// BlockedResourceTypes lists resource types to block, e.g. "Media".
	BlockedResourceTypes []string // default: none

	// RemoveOverlays strips cookie banners and fixed popups before capture.
	RemoveOverlays bool // default: false

	// Headers are extra HTTP headers sent with every request, "Key=Value".
	Headers map[string]string

	// RecycleAfterErrors replaces the page once its error score reaches
	// this value. 0 disables recycling.
	RecycleAfterErrors float64 // default: 0

	// CapturesPerSecond paces navigations. 0 means no pacing.
	CapturesPerSecond float64 // default: 0
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json", "text" or "auto"; default: "auto"
}

// WebhookConfig controls the run-completed notification.
type WebhookConfig struct {
	// URL receives a POST when the run finishes. Empty disables it.
	URL string

	// Secret signs the body with HMAC-SHA256 when set.
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Browser: BrowserConfig{
			Headless:       envBoolOr("SHOTLIST_HEADLESS", true),
			NoSandbox:      envBoolOr("SHOTLIST_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("SHOTLIST_BROWSER_BIN"),
			Proxy:          os.Getenv("SHOTLIST_PROXY"),
			ViewportWidth:  envIntOr("SHOTLIST_VIEWPORT_WIDTH", 1366),
			ViewportHeight: envIntOr("SHOTLIST_VIEWPORT_HEIGHT", 768),
			UserAgent:      os.Getenv("SHOTLIST_USER_AGENT"),
		},
		Capture: CaptureConfig{
			NavigationTimeout:    envDurationOr("SHOTLIST_NAV_TIMEOUT", 60*time.Second),
			SettleDelay:          envDurationOr("SHOTLIST_SETTLE_DELAY", 800*time.Millisecond),
			Stealth:              envBoolOr("SHOTLIST_STEALTH", false),
			BlockAds:             envBoolOr("SHOTLIST_BLOCK_ADS", false),
			BlockedResourceTypes: envSliceOr("SHOTLIST_BLOCKED_RESOURCES", nil),
			RemoveOverlays:       envBoolOr("SHOTLIST_REMOVE_OVERLAYS", false),
			Headers:              envMapOr("SHOTLIST_HEADERS", nil),
			RecycleAfterErrors:   envFloatOr("SHOTLIST_RECYCLE_AFTER_ERRORS", 0),
			CapturesPerSecond:    envFloatOr("SHOTLIST_RATE", 0),
		},
		Log: LogConfig{
			Level:  envOr("SHOTLIST_LOG_LEVEL", "info"),
			Format: envOr("SHOTLIST_LOG_FORMAT", "auto"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("SHOTLIST_WEBHOOK_URL"),
			Secret: os.Getenv("SHOTLIST_WEBHOOK_SECRET"),
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

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

// envMapOr parses "K1=V1,K2=V2". Entries without '=' are skipped.
func envMapOr(key string, fallback map[string]string) map[string]string {
	parts := envSliceOr(key, nil)
	if len(parts) == 0 {
		return fallback
	}
	result := make(map[string]string, len(parts))
	for _, p := range parts {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return result
}
