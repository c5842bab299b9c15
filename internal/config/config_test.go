package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"REDIS_URL":         "redis://localhost:6379/0",
		"UPSTREAM_BASE_URL": "",
		"PORT":              "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "https://dummyjson.com", cfg.UpstreamBaseURL)
	require.Equal(t, 30, cfg.CatalogDefaultLimit)
	require.Equal(t, 2*time.Second, cfg.FeedbackDisplayTTL)
	require.Equal(t, 30*time.Minute, cfg.CartSessionTTL)
}

func TestLoadRequiresRedis(t *testing.T) {
	_, err := LoadForTests(map[string]string{"REDIS_URL": ""})
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"REDIS_URL":             "redis://localhost:6379/0",
		"UPSTREAM_BASE_URL":     "http://upstream.test",
		"CATALOG_DEFAULT_LIMIT": "10",
		"FEEDBACK_DISPLAY_TTL":  "500ms",
		"PORT":                  ":9090",
	})
	require.NoError(t, err)
	require.Equal(t, "http://upstream.test", cfg.UpstreamBaseURL)
	require.Equal(t, 10, cfg.CatalogDefaultLimit)
	require.Equal(t, 500*time.Millisecond, cfg.FeedbackDisplayTTL)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}
