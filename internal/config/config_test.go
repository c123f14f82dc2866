package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFallsBackOnBlankValues(t *testing.T) {
	for _, key := range []string{"DISABLED_STAGES", "MINIO_USE_SSL", "XRAY_TIMEOUT", "QUEUE_BUFFER_SIZE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, 30*time.Second, cfg.Ai.XRayTimeout)
	assert.Empty(t, cfg.Ai.DisabledStages)
	assert.Equal(t, 64, cfg.App.QueueBufferSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("DISABLED_STAGES", "xray, exclusions")
	t.Setenv("QUEUE_BUFFER_SIZE", "not-a-number")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 45*time.Second, cfg.Ai.LLMTimeout)
	assert.Equal(t, []string{"xray", "exclusions"}, cfg.Ai.DisabledStages)
	assert.Equal(t, 64, cfg.App.QueueBufferSize)
}
