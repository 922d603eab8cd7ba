package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs is a helper that sets multiple env vars for one test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "ARS", cfg.Currency)
	assert.Equal(t, 720, cfg.CartTTLHours)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, 6379, cfg.RedisPort)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidCurrency(t *testing.T) {
	t.Setenv("STORE_CURRENCY", "PESOS")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_CURRENCY must be a 3-letter code")
}

func TestLoad_InvalidCartTTL(t *testing.T) {
	t.Setenv("CART_TTL_HOURS", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CART_TTL_HOURS must be positive")
}

func TestLoad_InvalidRateLimitBurst(t *testing.T) {
	setEnvs(t, map[string]string{
		"RATE_LIMIT_RPS":   "50",
		"RATE_LIMIT_BURST": "0",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_BURST must be positive")
}

func TestLoad_RateLimitDisabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RateLimitRPS)
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_CustomValues(t *testing.T) {
	setEnvs(t, map[string]string{
		"HTTP_PORT":      "9000",
		"STORE_CURRENCY": "usd",
		"CART_TTL_HOURS": "48",
		"KAFKA_BROKERS":  "broker1:9092,broker2:9092",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, 48, cfg.CartTTLHours)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}
