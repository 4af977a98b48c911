package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("CHAT_PROVIDER", "stub")
	t.Setenv("VISION_PROVIDER", "openai")
}

func TestDefaultsMatchGenerationConfig(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 1.0, cfg.Generation.Temperature)
	assert.Equal(t, 0.95, cfg.Generation.TopP)
	assert.Equal(t, 40, cfg.Generation.TopK)
	assert.Equal(t, 8192, cfg.Generation.MaxOutputTokens)
	assert.Equal(t, "text/plain", cfg.Generation.ResponseMIMEType)
	assert.Equal(t, "gemini-1.5-flash", cfg.ChatModel)
	assert.Contains(t, cfg.SystemPrompt, "e-waste")
	assert.NotEmpty(t, cfg.Acknowledgement)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{
		"-chat-provider", "STUB",
		"-vision-provider", "openai",
		"-chat-top-k", "10",
		"-max-history-records", "6",
		"-server-bind-addr", ":9090",
	})
	require.NoError(t, err)

	assert.Equal(t, "stub", cfg.ChatProvider)
	assert.Equal(t, "openai", cfg.Vision.Provider)
	assert.Equal(t, 10, cfg.Generation.TopK)
	assert.Equal(t, 6, cfg.MaxHistoryRecords)
	assert.Equal(t, ":9090", cfg.Server.BindAddr)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_PROVIDER", "openai")
	t.Setenv("VISION_PROVIDER", "openai")
	t.Setenv("CHAT_TOP_K", "7")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.ChatProvider)
	assert.Equal(t, 7, cfg.Generation.TopK)
}

func TestLoadGeminiRequiresAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"-chat-provider", "gemini", "-vision-provider", "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")

	cfg, err := Load([]string{"-chat-provider", "gemini", "-vision-provider", "gemini", "-google-api-key", "k"})
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.GoogleAPIKey)
}

func TestValidateRejectsUnknownProviders(t *testing.T) {
	cfg := Defaults()
	cfg.ChatProvider = "bard"
	cfg.Vision.Provider = "mobilenet"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bard")
	assert.Contains(t, err.Error(), "mobilenet")
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := Defaults()
	cfg.ChatProvider = "stub"
	cfg.Vision.Provider = "openai"
	cfg.MaxHistoryRecords = -1
	cfg.Upload.MaxBytes = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max history records")
	assert.Contains(t, err.Error(), "лимиты загрузки")
}

func TestLoadNarratorSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("NARRATOR_ENABLED", "true")
	t.Setenv("GOOGLE_TTS_VOICE", "en-GB-Standard-A")

	cfg, err := Load([]string{"-narrator-audio-ttl-seconds", "120"})
	require.NoError(t, err)

	assert.True(t, cfg.Narrator.Enabled)
	assert.Equal(t, "en-GB-Standard-A", cfg.Narrator.Voice)
	assert.Equal(t, 120, cfg.Narrator.AudioTTLSeconds)
	assert.Equal(t, "audio", cfg.Narrator.AudioDir)
}
