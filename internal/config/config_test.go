package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("QUEUE_BACKEND", "")
	t.Setenv("RENDER_DPI", "")
	t.Setenv("WORKER_CONCURRENCY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendAsynq, cfg.QueueBackend)
	assert.Equal(t, 300, cfg.RenderDPI)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, "hin", cfg.HindiLang)
	assert.Equal(t, "eng", cfg.EnglishLang)
	assert.Equal(t, 300000, cfg.ProcessingTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", "REDIS")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("CONTRAST_BOOST", "3.5")
	t.Setenv("RENDER_DPI", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.QueueBackend)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.Equal(t, 3.5, cfg.ContrastBoost)
	assert.Equal(t, 300, cfg.RenderDPI, "unparseable values fall back to the default")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateWorker(t *testing.T) {
	cfg := &Config{
		RedisURL:          "redis://localhost:6379",
		DatabaseURL:       "postgres://localhost/rolls",
		QueueBackend:      BackendRedis,
		QueueName:         "electoralroll",
		WorkerConcurrency: 2,
		ProcessingTimeout: 60000,
		RenderDPI:         300,
		TableFirstPage:    3,
	}
	require.NoError(t, cfg.ValidateWorker())

	cfg.DatabaseURL = ""
	assert.Error(t, cfg.ValidateWorker())

	cfg.DatabaseURL = "postgres://localhost/rolls"
	cfg.QueueBackend = "kafka"
	assert.Error(t, cfg.ValidateWorker())
}
