package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AutosaveDebounce is the quiescence window after the last draft edit
// before an autosave is dispatched.
//
// Set via env:
// - AUTOSAVE_DEBOUNCE_MS=3000
func AutosaveDebounce() time.Duration {
	ms := intFromEnv("AUTOSAVE_DEBOUNCE_MS", 3000)
	if ms < 100 {
		ms = 100
	}
	return time.Duration(ms) * time.Millisecond
}

// SessionIdleTimeout is how long a builder session may sit untouched
// before the registry evicts it.
//
// Set via env:
// - SESSION_IDLE_TIMEOUT_MIN=30
func SessionIdleTimeout() time.Duration {
	min := intFromEnv("SESSION_IDLE_TIMEOUT_MIN", 30)
	if min < 1 {
		min = 1
	}
	return time.Duration(min) * time.Minute
}

// CatalogCacheTTL is the redis TTL for catalog snapshot responses.
// Zero disables caching even when redis is available.
//
// Set via env:
// - CATALOG_CACHE_TTL_SEC=300
func CatalogCacheTTL() time.Duration {
	sec := intFromEnv("CATALOG_CACHE_TTL_SEC", 300)
	if sec < 0 {
		sec = 0
	}
	return time.Duration(sec) * time.Second
}

// DefaultPhoneRegion is the region hint for contact phone checks.
//
// Set via env:
// - DEFAULT_PHONE_REGION=MM
func DefaultPhoneRegion() string {
	region := strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_PHONE_REGION")))
	if region == "" {
		return "MM"
	}
	return region
}

// QuoteEventsEnabled gates the lifecycle-event outbox dispatcher.
//
// Set via env:
// - QUOTE_EVENTS_DISABLED=true
func QuoteEventsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("QUOTE_EVENTS_DISABLED")))
	return !(v == "1" || v == "true" || v == "yes" || v == "y")
}

func intFromEnv(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
