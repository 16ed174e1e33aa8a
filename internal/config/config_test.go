package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("NEWS_API_KEY", "news")
	t.Setenv("FIRECRAWL_API_KEY", "firecrawl")
	t.Setenv("GEMINI_API_KEY", "gemini")
	t.Setenv("JWT_SECRET", "secret")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreRedis, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.Cooldown)
	assert.Equal(t, 5, cfg.ArticleConcurrency)
	assert.Equal(t, 3, cfg.BatchConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.ManualTimeout)
	assert.Equal(t, 9*time.Minute, cfg.BatchTimeout)
	assert.Equal(t, "0 5 * * *", cfg.DigestSchedule)
	assert.Equal(t, "America/Edmonton", cfg.Location().String())
	assert.Equal(t, 7, cfg.HistoryDays)
	assert.Equal(t, 3, cfg.NewsAPIRetryCount)
	assert.Equal(t, 2*time.Second, cfg.NewsAPIRetryWait)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "FILE")
	t.Setenv("COOLDOWN", "30m")
	t.Setenv("ARTICLE_CONCURRENCY", "8")
	t.Setenv("EXTRACT_HTML_FALLBACK", "false")
	t.Setenv("BATCH_CONCURRENCY", "not-a-number")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StoreFile, cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.Cooldown)
	assert.Equal(t, 8, cfg.ArticleConcurrency)
	assert.False(t, cfg.ExtractHTMLFallback)
	assert.Equal(t, 3, cfg.BatchConcurrency, "invalid values fall back to the default")
}

func TestValidateMissingCredentials(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "")
	t.Setenv("FIRECRAWL_API_KEY", "x")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("JWT_SECRET", "x")

	err := FromEnv().Validate()
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY, NEWS_API_KEY")
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown store", key: "STORE_DRIVER", val: "postgres"},
		{name: "too many article workers", key: "ARTICLE_CONCURRENCY", val: "100"},
		{name: "zero batch workers", key: "BATCH_CONCURRENCY", val: "0"},
		{name: "history too long", key: "DIGEST_HISTORY_DAYS", val: "365"},
		{name: "bad timezone", key: "DIGEST_TIMEZONE", val: "Mars/Olympus"},
		{name: "bad news url", key: "NEWS_API_URL", val: "not a url"},
		{name: "non numeric port", key: "PORT", val: "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)
			assert.ErrorIs(t, FromEnv().Validate(), ErrConfiguration)
		})
	}
}

func TestValidateArchiveCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("R2_ENDPOINT", "https://account.r2.cloudflarestorage.com")

	cfg := FromEnv()
	assert.True(t, cfg.ArchiveEnabled())
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)

	t.Setenv("R2_ACCESS_KEY", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	assert.NoError(t, FromEnv().Validate())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{DigestTimezone: "Nowhere/Special"}
	assert.Equal(t, time.UTC, cfg.Location())
}
