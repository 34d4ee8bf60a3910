package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("PROCESSOR_DEFAULT_URL", "http://primary:8080")
	t.Setenv("PROCESSOR_FALLBACK_URL", "http://fallback:8080")
	t.Setenv("STORE_CONNECTION_STRING", "redis://store:6379")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://primary:8080", cfg.PrimaryURL)
	assert.Equal(t, "http://fallback:8080", cfg.FallbackURL)
	assert.Equal(t, "redis://store:6379", cfg.StoreURL)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, []time.Duration{25 * time.Millisecond, 100 * time.Millisecond}, cfg.Backoffs)
	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 3, cfg.SuccessThreshold)
	assert.Equal(t, 5*time.Second, cfg.Cooldown)
	assert.Equal(t, 5*time.Second, cfg.HealthCacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.LatencyCutoff)
	assert.Equal(t, 500*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, time.Second, cfg.PaymentTimeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{"missing primary url", "PROCESSOR_DEFAULT_URL"},
		{"missing fallback url", "PROCESSOR_FALLBACK_URL"},
		{"missing store", "STORE_CONNECTION_STRING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.omit, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.omit)
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_RETRIES", "3")
	t.Setenv("RETRY_BACKOFFS_MS", "10, 20, 40")
	t.Setenv("BREAKER_COOLDOWN_MS", "30000")
	t.Setenv("HEALTH_LATENCY_CUTOFF_MS", "1000")
	t.Setenv("PORT", "8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, cfg.Backoffs)
	assert.Equal(t, 30*time.Second, cfg.Cooldown)
	assert.Equal(t, time.Second, cfg.LatencyCutoff)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"non-numeric retries", "MAX_RETRIES", "two"},
		{"negative cooldown", "BREAKER_COOLDOWN_MS", "-5"},
		{"garbage backoffs", "RETRY_BACKOFFS_MS", "25,fast"},
		{"zero retries", "MAX_RETRIES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.env, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
