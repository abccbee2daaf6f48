package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "REFERENCE_UTC_OFFSET_MINUTES", "TICK_SCHEDULE", "ENABLE_TICK_LOCK", "OPERATION_TIMEOUT_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg, _ := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, -180, cfg.ReferenceUTCOffsetMinutes)
	assert.Equal(t, "* * * * *", cfg.TickSchedule)
	assert.False(t, cfg.EnableTickLock)
	assert.Equal(t, 5*time.Second, cfg.OperationTimeout())
	assert.Equal(t, 50*time.Second, cfg.WorkerRunTimeout())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REFERENCE_UTC_OFFSET_MINUTES", "60")
	t.Setenv("ENABLE_TICK_LOCK", "yes")
	t.Setenv("FANOUT_CONCURRENCY", "not-a-number")

	cfg, _ := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 60, cfg.ReferenceUTCOffsetMinutes)
	assert.True(t, cfg.EnableTickLock)
	assert.Equal(t, 8, cfg.FanoutConcurrency)
}

func validConfig() *Config {
	return &Config{
		Environment:               "development",
		ReferenceUTCOffsetMinutes: -180,
		OperationTimeoutSeconds:   5,
		WorkerRunTimeoutSeconds:   50,
		FanoutConcurrency:         8,
		FirebaseCredentialsPath:   "/etc/eva/firebase.json",
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		warnings, err := validConfig().Validate()
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("production requires database", func(t *testing.T) {
		cfg := validConfig()
		cfg.Environment = "production"
		_, err := cfg.Validate()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("run timeout must fit the minute", func(t *testing.T) {
		cfg := validConfig()
		cfg.WorkerRunTimeoutSeconds = 60
		_, err := cfg.Validate()
		assert.ErrorContains(t, err, "WORKER_RUN_TIMEOUT_SECONDS")
	})

	t.Run("tick lock requires redis", func(t *testing.T) {
		cfg := validConfig()
		cfg.EnableTickLock = true
		_, err := cfg.Validate()
		assert.ErrorContains(t, err, "REDIS_ADDR")
	})

	t.Run("email without credentials only warns", func(t *testing.T) {
		cfg := validConfig()
		cfg.EnableEmail = true
		warnings, err := cfg.Validate()
		require.NoError(t, err)
		assert.Len(t, warnings, 1)
	})

	t.Run("from address falls back to username", func(t *testing.T) {
		cfg := validConfig()
		cfg.EnableEmail = true
		cfg.SMTPUsername = "eva@example.com"
		cfg.SMTPPassword = "secret"
		_, err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, "eva@example.com", cfg.SMTPFromEmail)
	})
}
