package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)

	assert.Equal(t, "storygram-media", cfg.Storage.Bucket)
	assert.Equal(t, "stories", cfg.Storage.StoryPrefix)
	assert.Equal(t, time.Hour, cfg.Storage.PutPresignTTL)
	assert.Equal(t, 15*time.Minute, cfg.Storage.GetPresignTTL)

	assert.Equal(t, int64(10<<20), cfg.Limits.ImageMaxBytes)
	assert.Equal(t, int64(100<<20), cfg.Limits.VideoMaxBytes)
	assert.Equal(t, 10, cfg.Limits.MaxPresignFiles)
	assert.Equal(t, 20, cfg.Limits.FeedPageDefault)
	assert.Equal(t, 100, cfg.Limits.FeedPageMax)

	assert.Equal(t, 24*time.Hour, cfg.Lifecycle.StoryTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Lifecycle.SoftDeleteRetention)
	assert.Equal(t, 200, cfg.Lifecycle.SweepBatchSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STORYGRAM_HTTP_PORT", "9999")
	t.Setenv("STORYGRAM_LIFECYCLE_STORYTTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, 48*time.Hour, cfg.Lifecycle.StoryTTL)
}
