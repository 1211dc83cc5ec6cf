package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vars = []string{
	"PORT", "APP_ENV", "LOG_MODE", "LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_RPS", "LLM_BURST",
	"TUTOR_ALLOWED_VERBS", "TUTOR_MAX_RETRIES", "TUTOR_REQUEST_TIMEOUT", "TUTOR_TEMPERATURE_BASE",
	"TUTOR_TEMPERATURE_STEP", "TUTOR_MAX_OUTPUT_TOKENS", "TUTOR_POLICY_FILE", "SESSION_MAX", "SESSION_TTL",
	"OPENAI_API_KEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range vars {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "dev", cfg.LogMode)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model)
	assert.Zero(t, cfg.LLM.RPS)
	assert.Equal(t, 5, cfg.Tutor.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Tutor.RequestTimeout)
	assert.InDelta(t, 0.7, cfg.Tutor.TemperatureBase, 1e-9)
	assert.Equal(t, 500, cfg.Tutor.MaxOutputTokens)
	assert.Len(t, cfg.Tutor.AllowedVerbs, 14)
	assert.Equal(t, 1024, cfg.Sessions.Max)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.TTL)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_RPS", "2.5")
	t.Setenv("TUTOR_ALLOWED_VERBS", "ser, estar ,, ir")
	t.Setenv("TUTOR_MAX_RETRIES", "8")
	t.Setenv("TUTOR_REQUEST_TIMEOUT", "12s")
	t.Setenv("SESSION_TTL", "15m")

	cfg, err := LoadArgs([]string{"-provider", "fake"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, "prod", cfg.LogMode)
	assert.Equal(t, "fake", cfg.LLM.Provider, "flag wins over env")
	assert.InDelta(t, 2.5, cfg.LLM.RPS, 1e-9)
	assert.Equal(t, []string{"ser", "estar", "ir"}, cfg.Tutor.AllowedVerbs)
	assert.Equal(t, 8, cfg.Tutor.MaxRetries)
	assert.Equal(t, 12*time.Second, cfg.Tutor.RequestTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Sessions.TTL)
}

func TestLoadReportsEveryMalformedValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUTOR_MAX_RETRIES", "many")
	t.Setenv("SESSION_TTL", "soon")
	_, err := LoadArgs(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TUTOR_MAX_RETRIES")
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestLoadRejectsInvalidTutorConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUTOR_MAX_RETRIES", "0")
	_, err := LoadArgs(nil)
	assert.ErrorContains(t, err, "max retries")
}

func TestResolveAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "from-provider-var")
	assert.Equal(t, "from-provider-var", LLMConfig{}.ResolveAPIKey("OPENAI_API_KEY"))
	assert.Equal(t, "override", LLMConfig{APIKey: "override"}.ResolveAPIKey("OPENAI_API_KEY"))
	assert.Empty(t, LLMConfig{}.ResolveAPIKey(""))
}
