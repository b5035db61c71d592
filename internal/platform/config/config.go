// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a default good enough for local development;
// only authority API keys genuinely require operator input.
package config

import (
	"os"
	"time"
)

// Config captures the whole service configuration.
type Config struct {
	Addr        string
	Environment string

	Authorities Authorities
	Cache       Cache
	Redis       Redis
}

// Authorities holds per-authority endpoints and credentials. Empty base URLs
// select each authority's production endpoint.
type Authorities struct {
	MFBaseURL      string
	BIRBaseURL     string
	BIRAPIKey      string
	VIESBaseURL    string
	NBPBaseURL     string
	IBANAPIBaseURL string
	IBANAPIKey     string
	CallTimeout    time.Duration
}

// Cache holds the TTL windows for lookup outcomes.
type Cache struct {
	FoundTTL    time.Duration
	NotFoundTTL time.Duration
	RateTTL     time.Duration
	MaxEntries  int
}

// Redis holds the optional Redis cache backend configuration. An empty URL
// keeps the in-memory cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:        envOr("REGISTRA_ADDR", ":8080"),
		Environment: envOr("REGISTRA_ENV", "development"),
		Authorities: Authorities{
			MFBaseURL:      os.Getenv("REGISTRA_MF_URL"),
			BIRBaseURL:     os.Getenv("REGISTRA_BIR_URL"),
			BIRAPIKey:      envOr("REGISTRA_BIR_KEY", "abcde12345abcde12345"), // GUS public test key
			VIESBaseURL:    os.Getenv("REGISTRA_VIES_URL"),
			NBPBaseURL:     os.Getenv("REGISTRA_NBP_URL"),
			IBANAPIBaseURL: os.Getenv("REGISTRA_IBANAPI_URL"),
			IBANAPIKey:     os.Getenv("REGISTRA_IBANAPI_KEY"),
			CallTimeout:    durationOr("REGISTRA_AUTHORITY_TIMEOUT", 10*time.Second),
		},
		Cache: Cache{
			FoundTTL:    durationOr("REGISTRA_CACHE_FOUND_TTL", 6*time.Hour),
			NotFoundTTL: durationOr("REGISTRA_CACHE_NOT_FOUND_TTL", 30*time.Minute),
			RateTTL:     durationOr("REGISTRA_CACHE_RATE_TTL", time.Hour),
			MaxEntries:  10000,
		},
		Redis: Redis{
			URL:          os.Getenv("REGISTRA_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
