// Package config resolves provider settings from flags, environment
// variables, and the config file, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/micahbf/halp/internal/llm"
)

const (
	appName        = "halp"
	configFileName = "config.yaml"
)

var defaultModels = map[string]string{
	llm.ProviderAnthropic: "claude-haiku-4-5",
	llm.ProviderOpenAI:    "gpt-5-nano",
	llm.ProviderGemini:    "gemini-2.5-flash",
}

var providerKeyEnv = map[string]string{
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
}

// File is the on-disk configuration shape.
type File struct {
	Provider     string `yaml:"provider,omitempty"`
	Model        string `yaml:"model,omitempty"`
	APIKey       string `yaml:"api_key,omitempty"`
	APIBaseURL   string `yaml:"api_base_url,omitempty"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

// Config is the fully resolved configuration for one request.
type Config struct {
	Provider     string
	Model        string
	APIKey       string
	APIBaseURL   string
	SystemPrompt string
}

// Overrides carries flag-level settings, which outrank every other source.
type Overrides struct {
	Provider string
	Model    string
}

// Path returns the config file location under the XDG config home.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// Resolve merges all configuration sources. Precedence, highest first:
// flags, HALP_* environment variables, the config file, the provider's
// own key variable, built-in defaults. Empty environment variables are
// treated as unset.
func Resolve(ov Overrides) (*Config, error) {
	file, err := LoadFile()
	if err != nil {
		return nil, err
	}

	provider, err := CanonicalProvider(firstNonEmpty(
		ov.Provider, os.Getenv("HALP_PROVIDER"), file.Provider, llm.ProviderAnthropic))
	if err != nil {
		return nil, err
	}

	model := firstNonEmpty(ov.Model, os.Getenv("HALP_MODEL"), file.Model, DefaultModel(provider))

	apiKey, err := resolveAPIKey(provider, file.APIKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		Provider:     provider,
		Model:        model,
		APIKey:       apiKey,
		APIBaseURL:   firstNonEmpty(os.Getenv("HALP_API_BASE_URL"), file.APIBaseURL),
		SystemPrompt: file.SystemPrompt,
	}, nil
}

// CanonicalProvider maps a provider name or alias (claude, gpt, google)
// to its canonical form, case-insensitively.
func CanonicalProvider(name string) (string, error) {
	switch strings.ToLower(name) {
	case "anthropic", "claude":
		return llm.ProviderAnthropic, nil
	case "openai", "gpt":
		return llm.ProviderOpenAI, nil
	case "gemini", "google":
		return llm.ProviderGemini, nil
	default:
		return "", &llm.Error{
			Provider: name,
			Kind:     llm.KindUnknownProvider,
			Message:  fmt.Sprintf("unknown provider %q, use one of: %s", name, strings.Join(llm.Providers(), ", ")),
		}
	}
}

// DefaultModel returns the built-in model for a canonical provider name.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// KeyEnvVar returns the provider's conventional API key variable.
func KeyEnvVar(provider string) string {
	return providerKeyEnv[provider]
}

func resolveAPIKey(provider, fromFile string) (string, error) {
	if key := os.Getenv("HALP_API_KEY"); key != "" {
		return key, nil
	}
	if fromFile != "" {
		return fromFile, nil
	}
	if key := os.Getenv(KeyEnvVar(provider)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key found: set HALP_API_KEY, add api_key to %s, or set %s", Path(), KeyEnvVar(provider))
}

// LoadFile reads the config file. A missing file is not an error; it
// just contributes nothing.
func LoadFile() (File, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse %s: %w", Path(), err)
	}
	return f, nil
}

// Save writes the config file, creating its directory if needed. The
// file may hold an API key, hence the tight mode.
func Save(f File) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists reports whether a config file is present.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
