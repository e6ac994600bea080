package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("AISTM7_DATABASE_DSN", "postgres://localhost/aistm7")
	t.Setenv("AISTM7_ORACLE_BASE_URL", "https://prices.test")
	t.Setenv("AISTM7_PRICE_FEED_ID", "feed-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/aistm7", cfg.DatabaseDSN)
	assert.Equal(t, "https://prices.test", cfg.OracleBaseURL)
	assert.Equal(t, "feed-1", cfg.PriceFeedID)
	assert.Equal(t, time.Minute, cfg.OracleMaxAge)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, ":8080", cfg.Bind)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingDSN(t *testing.T) {
	t.Setenv("AISTM7_DATABASE_DSN", "placeholder")
	t.Setenv("AISTM7_ORACLE_BASE_URL", "https://prices.test")
	t.Setenv("AISTM7_PRICE_FEED_ID", "feed-1")
	os.Unsetenv("AISTM7_DATABASE_DSN")

	_, err := Load()
	assert.Error(t, err)
}
