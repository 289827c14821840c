package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.NotEmpty(t, cfg.DetectorBackend)
	assert.NotEmpty(t, cfg.LLMModel)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_FALLBACKS", "")
	os.Unsetenv("LLM_FALLBACKS")
	t.Setenv("LLM_TEMPERATURE", "not-a-number")
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_MODEL", "")
	os.Unsetenv("LLM_MODEL")

	cfg := Load()

	assert.Equal(t, []string{"llama-3.1-8b-instant", "llama-3.1-70b-versatile"}, cfg.LLMFallbacks)
	assert.InDelta(t, 0.3, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLMModel)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("LLM_PROVIDER", "Claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test123")
	t.Setenv("LLM_FALLBACKS", " a, ,b ")
	t.Setenv("DETECTOR_INPUT_SIZE", "320")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "claude", cfg.LLMProvider)
	assert.Equal(t, "sk-test123", cfg.LLMAPIKey)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.LLMModel)
	assert.Equal(t, []string{"a", "b"}, cfg.LLMFallbacks)
	assert.Equal(t, 320, cfg.DetectorInputSize)
}

func TestLoadExplicitKeyWins(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "from-provider")
	t.Setenv("LLM_API_KEY", "explicit")

	assert.Equal(t, "explicit", Load().LLMAPIKey)
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("LOG_LEVEL", "warn")
	path := filepath.Join(t.TempDir(), "sintaxia.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":8081\"\nllm_provider: GEMINI\nllm_fallbacks: [gemini-1.5-flash]\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, []string{"gemini-1.5-flash"}, cfg.LLMFallbacks)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("listen_addr: [unclosed"), 0644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}

func TestLoadDotEnvPrefersDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SINTAXIA_TEST_VAR=dotenv\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api.env"), []byte("SINTAXIA_TEST_VAR=api\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SINTAXIA_TEST_VAR") })

	loaded, err := LoadDotEnv(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".env"), loaded)
	assert.Equal(t, "dotenv", os.Getenv("SINTAXIA_TEST_VAR"))
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api.env"), []byte("SINTAXIA_TEST_KEEP=file\n"), 0644))
	t.Setenv("SINTAXIA_TEST_KEEP", "env")

	loaded, err := LoadDotEnv(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "api.env"), loaded)
	assert.Equal(t, "env", os.Getenv("SINTAXIA_TEST_KEEP"))
}

func TestLoadDotEnvNone(t *testing.T) {
	loaded, err := LoadDotEnv(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{LLMProvider: "groq", LLMAPIKey: "k", DetectorBackend: "opencv", LLMTemperature: 0.3}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing key", func(c *Config) { c.LLMAPIKey = "" }, "GROQ_API_KEY"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "mistral" }, "LLM_PROVIDER"},
		{"unknown detector", func(c *Config) { c.DetectorBackend = "tflite" }, "DETECTOR_BACKEND"},
		{"temperature", func(c *Config) { c.LLMTemperature = 3 }, "LLM_TEMPERATURE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFileProviderSwitch(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_MODEL", "llama-3.1-70b-versatile")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	path := filepath.Join(t.TempDir(), "sintaxia.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm_provider: gemini\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLMModel)
	assert.Empty(t, cfg.LLMFallbacks)
	assert.Equal(t, "gem-key", cfg.LLMAPIKey)
}
