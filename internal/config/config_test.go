package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FR_BOOL", "false")
	t.Setenv("FR_BAD_BOOL", "maybe")
	t.Setenv("FR_INT", "42")
	t.Setenv("FR_BAD_INT", "forty")
	t.Setenv("FR_DURATION", "90s")
	t.Setenv("FR_BAD_DURATION", "soon")

	assert.False(t, envBool("FR_BOOL", true))
	assert.True(t, envBool("FR_BAD_BOOL", true))
	assert.True(t, envBool("FR_UNSET_BOOL", true))

	assert.Equal(t, 42, envInt("FR_INT", 1))
	assert.Equal(t, 1, envInt("FR_BAD_INT", 1))

	assert.Equal(t, 90*time.Second, envDuration("FR_DURATION", time.Minute))
	assert.Equal(t, time.Minute, envDuration("FR_BAD_DURATION", time.Minute))

	assert.Equal(t, "fallback", envString("FR_UNSET_STRING", "fallback"))
}

func TestLocation(t *testing.T) {
	cfg := &Config{SchedulerTimezone: "Europe/Berlin"}
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())

	cfg.SchedulerTimezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestSanitized(t *testing.T) {
	cfg := &Config{
		AppName:      "FoodRescue",
		AppEnv:       "production",
		JWTSecret:    "secret",
		ResendAPIKey: "re_key",
		S3SecretKey:  "s3",
		RedisURL:     "redis://:pw@host:6379/0",
	}

	safe := cfg.Sanitized()
	assert.Equal(t, "FoodRescue", safe.AppName)
	assert.True(t, safe.IsProduction())
	assert.Empty(t, safe.JWTSecret)
	assert.Empty(t, safe.ResendAPIKey)
	assert.Empty(t, safe.S3SecretKey)
	assert.Empty(t, safe.RedisURL)
}
