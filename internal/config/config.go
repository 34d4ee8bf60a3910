package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all tunables for one gateway replica. Every threshold that
// shapes routing behavior is configuration, not a constant.
type Config struct {
	// PrimaryURL is the base URL of the lower-fee processor.
	PrimaryURL string
	// FallbackURL is the base URL of the higher-fee processor.
	FallbackURL string
	// StoreURL is the connection string of the shared coordination store.
	StoreURL string
	// Port is the HTTP listen port.
	Port string

	// MaxRetries bounds the dispatch retry loop; each attempt may try both
	// processors.
	MaxRetries int
	// Backoffs are the waits between retry attempts.
	Backoffs []time.Duration

	// FailureThreshold opens a closed breaker after this many failures.
	FailureThreshold int
	// SuccessThreshold closes a half-open breaker after this many successes.
	SuccessThreshold int
	// Cooldown is how long an open breaker stays open before probing.
	Cooldown time.Duration

	// HealthCacheTTL is the lifetime of a cached health snapshot.
	HealthCacheTTL time.Duration
	// LatencyCutoff is the advertised minResponseTime above which a healthy
	// primary is still bypassed.
	LatencyCutoff time.Duration
	// ProbeTimeout is the hard deadline for one health probe.
	ProbeTimeout time.Duration
	// PaymentTimeout is the hard deadline for one upstream payment POST.
	PaymentTimeout time.Duration
}

// Default returns the configuration with every tunable at its default.
// Processor and store addresses have no defaults and must come from the
// environment.
func Default() Config {
	return Config{
		Port:             "9999",
		MaxRetries:       2,
		Backoffs:         []time.Duration{25 * time.Millisecond, 100 * time.Millisecond},
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Cooldown:         5 * time.Second,
		HealthCacheTTL:   5 * time.Second,
		LatencyCutoff:    500 * time.Millisecond,
		ProbeTimeout:     500 * time.Millisecond,
		PaymentTimeout:   1000 * time.Millisecond,
	}
}

// Load builds the configuration from the environment. The processor URLs
// and the store connection string are required; everything else falls back
// to the defaults.
func Load() (Config, error) {
	cfg := Default()

	cfg.PrimaryURL = os.Getenv("PROCESSOR_DEFAULT_URL")
	if cfg.PrimaryURL == "" {
		return Config{}, fmt.Errorf("PROCESSOR_DEFAULT_URL is required")
	}
	cfg.FallbackURL = os.Getenv("PROCESSOR_FALLBACK_URL")
	if cfg.FallbackURL == "" {
		return Config{}, fmt.Errorf("PROCESSOR_FALLBACK_URL is required")
	}
	cfg.StoreURL = os.Getenv("STORE_CONNECTION_STRING")
	if cfg.StoreURL == "" {
		return Config{}, fmt.Errorf("STORE_CONNECTION_STRING is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	var err error
	if cfg.MaxRetries, err = envInt("MAX_RETRIES", cfg.MaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.Backoffs, err = envBackoffs("RETRY_BACKOFFS_MS", cfg.Backoffs); err != nil {
		return Config{}, err
	}
	if cfg.FailureThreshold, err = envInt("BREAKER_FAILURE_THRESHOLD", cfg.FailureThreshold); err != nil {
		return Config{}, err
	}
	if cfg.SuccessThreshold, err = envInt("BREAKER_SUCCESS_THRESHOLD", cfg.SuccessThreshold); err != nil {
		return Config{}, err
	}
	if cfg.Cooldown, err = envMillis("BREAKER_COOLDOWN_MS", cfg.Cooldown); err != nil {
		return Config{}, err
	}
	if cfg.HealthCacheTTL, err = envMillis("HEALTH_CACHE_TTL_MS", cfg.HealthCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.LatencyCutoff, err = envMillis("HEALTH_LATENCY_CUTOFF_MS", cfg.LatencyCutoff); err != nil {
		return Config{}, err
	}
	if cfg.ProbeTimeout, err = envMillis("HEALTH_PROBE_TIMEOUT_MS", cfg.ProbeTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PaymentTimeout, err = envMillis("PAYMENT_TIMEOUT_MS", cfg.PaymentTimeout); err != nil {
		return Config{}, err
	}

	if cfg.MaxRetries < 1 {
		return Config{}, fmt.Errorf("MAX_RETRIES must be at least 1")
	}

	return cfg, nil
}

func envInt(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", name, raw)
	}
	return v, nil
}

func envMillis(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%s: invalid millisecond value %q", name, raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// envBackoffs parses a comma-separated list of millisecond waits,
// e.g. "25,100".
func envBackoffs(name string, def []time.Duration) ([]time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	parts := strings.Split(raw, ",")
	backoffs := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		ms, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("%s: invalid millisecond value %q", name, part)
		}
		backoffs = append(backoffs, time.Duration(ms)*time.Millisecond)
	}
	return backoffs, nil
}
