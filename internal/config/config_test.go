package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults проверяет значения по умолчанию для провайдера OpenAI.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, "You are a helpful financial assistant.", cfg.AI.SystemPrompt)
	assert.Equal(t, 1000, cfg.AI.MaxOutputTokens)
	assert.InDelta(t, 0.5, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.InDelta(t, 2.0, cfg.Retry.Multiplier, 1e-9)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.False(t, cfg.Audit.Enabled)
}

// TestLoadGeminiKeyFallback проверяет чтение ключа Gemini из отдельной переменной.
func TestLoadGeminiKeyFallback(t *testing.T) {
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("AI_MODEL", "gemini-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gem-key", cfg.AI.APIKey)
	assert.Equal(t, "gemini-test", cfg.AI.Model)
}

// TestLoadRejectsUnknownProvider проверяет валидацию провайдера.
func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "mistral")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_PROVIDER")
}

// TestLoadRetryOverrides проверяет переопределение политики повторов.
func TestLoadRetryOverrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "groq")
	t.Setenv("AI_RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("AI_RETRY_MULTIPLIER", "3")
	t.Setenv("AI_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("AI_RETRY_MAX_DELAY", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.InDelta(t, 3.0, cfg.Retry.Multiplier, 1e-9)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.AI.BaseURL)
}

// TestLoadRejectsBadValues проверяет ошибки разбора чисел и длительностей.
func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"AI_RETRY_MAX_ATTEMPTS": "0",
		"AI_TIMEOUT":            "soon",
		"AI_TEMPERATURE":        "hot",
		"AUDIT_ENABLED":         "maybe",
		"AI_RETRY_MULTIPLIER":   "0.5",
		"AI_RETRY_MAX_DELAY":    "10ms",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("AI_PROVIDER", "openai")
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

// TestDSN проверяет сборку строки подключения.
func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p@ss", Name: "audit", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5433/audit?sslmode=disable", cfg.DSN())
}
