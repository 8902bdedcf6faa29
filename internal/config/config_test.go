package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micahbf/halp/internal/llm"
)

// isolate points XDG at a temp dir and blanks every variable the
// resolver consults, so tests see only what they set themselves.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	for _, v := range []string{
		"HALP_PROVIDER", "HALP_MODEL", "HALP_API_KEY", "HALP_API_BASE_URL",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(v, "")
	}
	return dir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, "halp")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(content), 0600))
}

func TestResolveDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Resolve(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "claude-haiku-4-5", cfg.Model)
	assert.Equal(t, "sk-ant", cfg.APIKey)
	assert.Empty(t, cfg.APIBaseURL)
}

func TestResolveFromFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
provider: openai
model: gpt-5-nano
api_key: sk-file
api_base_url: https://proxy.internal/v1/chat/completions
system_prompt: "answer in pirate speak"
`)

	cfg, err := Resolve(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-5-nano", cfg.Model)
	assert.Equal(t, "sk-file", cfg.APIKey)
	assert.Equal(t, "https://proxy.internal/v1/chat/completions", cfg.APIBaseURL)
	assert.Equal(t, "answer in pirate speak", cfg.SystemPrompt)
}

func TestResolveEnvBeatsFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "provider: openai\nmodel: gpt-5-nano\napi_key: sk-file\n")
	t.Setenv("HALP_PROVIDER", "gemini")
	t.Setenv("HALP_MODEL", "gemini-2.5-pro")
	t.Setenv("HALP_API_KEY", "sk-env")
	t.Setenv("HALP_API_BASE_URL", "https://env.example/api")

	cfg, err := Resolve(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, "https://env.example/api", cfg.APIBaseURL)
}

func TestResolveFlagsBeatEnv(t *testing.T) {
	isolate(t)
	t.Setenv("HALP_PROVIDER", "gemini")
	t.Setenv("HALP_MODEL", "gemini-2.5-flash")
	t.Setenv("OPENAI_API_KEY", "sk-oai")

	cfg, err := Resolve(Overrides{Provider: "openai", Model: "gpt-5"})
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-5", cfg.Model)
	assert.Equal(t, "sk-oai", cfg.APIKey)
}

func TestResolveAPIKeyPrecedence(t *testing.T) {
	t.Run("halp key beats file and provider key", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, dir, "api_key: sk-file\n")
		t.Setenv("HALP_API_KEY", "sk-halp")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

		cfg, err := Resolve(Overrides{})
		require.NoError(t, err)
		assert.Equal(t, "sk-halp", cfg.APIKey)
	})

	t.Run("file beats provider key", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, dir, "api_key: sk-file\n")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

		cfg, err := Resolve(Overrides{})
		require.NoError(t, err)
		assert.Equal(t, "sk-file", cfg.APIKey)
	})

	t.Run("provider key is the fallback", func(t *testing.T) {
		isolate(t)
		t.Setenv("GEMINI_API_KEY", "sk-gem")

		cfg, err := Resolve(Overrides{Provider: "gemini"})
		require.NoError(t, err)
		assert.Equal(t, "sk-gem", cfg.APIKey)
	})
}

func TestResolveMissingAPIKey(t *testing.T) {
	isolate(t)

	_, err := Resolve(Overrides{Provider: "openai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HALP_API_KEY")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestResolveUnknownProvider(t *testing.T) {
	isolate(t)

	_, err := Resolve(Overrides{Provider: "cyberdyne"})
	require.Error(t, err)
	assert.True(t, llm.IsKind(err, llm.KindUnknownProvider))
	assert.Contains(t, err.Error(), "cyberdyne")
}

func TestCanonicalProviderAliases(t *testing.T) {
	for alias, want := range map[string]string{
		"anthropic": llm.ProviderAnthropic,
		"claude":    llm.ProviderAnthropic,
		"CLAUDE":    llm.ProviderAnthropic,
		"openai":    llm.ProviderOpenAI,
		"gpt":       llm.ProviderOpenAI,
		"gemini":    llm.ProviderGemini,
		"google":    llm.ProviderGemini,
		"Google":    llm.ProviderGemini,
	} {
		got, err := CanonicalProvider(alias)
		require.NoError(t, err, "alias %q", alias)
		assert.Equal(t, want, got, "alias %q", alias)
	}
}

func TestDefaultModels(t *testing.T) {
	assert.Equal(t, "claude-haiku-4-5", DefaultModel(llm.ProviderAnthropic))
	assert.Equal(t, "gpt-5-nano", DefaultModel(llm.ProviderOpenAI))
	assert.Equal(t, "gemini-2.5-flash", DefaultModel(llm.ProviderGemini))
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)

	assert.False(t, Exists())
	in := File{Provider: "gemini", Model: "gemini-2.5-flash", APIKey: "sk-x"}
	require.NoError(t, Save(in))
	assert.True(t, Exists())

	out, err := LoadFile()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	info, err := os.Stat(Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadFileMalformed(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "provider: [unclosed\n")

	_, err := LoadFile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.yaml")
}
