// Package config loads service settings from defaults, an optional YAML
// file and PROPOSAL_VETTING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix     = "PROPOSAL_VETTING_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Addr     string `koanf:"addr"`
	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`

	// AIProvider selects the chat backend: "openai" or "anthropic".
	AIProvider string `koanf:"ai_provider"`
	// AIModel overrides the provider's default model when set.
	AIModel             string  `koanf:"ai_model"`
	AIBaseURL           string  `koanf:"ai_base_url"`
	AITemperature       float64 `koanf:"ai_temperature"`
	AIMaxTokens         int     `koanf:"ai_max_tokens"`
	AIRequestsPerMinute int     `koanf:"ai_requests_per_minute"`

	FetchTimeoutSeconds    int     `koanf:"fetch_timeout_seconds"`
	FetchMaxURLs           int     `koanf:"fetch_max_urls"`
	FetchMaxChars          int     `koanf:"fetch_max_chars"`
	FetchRequestsPerSecond float64 `koanf:"fetch_requests_per_second"`

	// Renderer is "fpdf" (in-process) or "chromium" (headless browser).
	Renderer   string `koanf:"renderer"`
	ChromePath string `koanf:"chrome_path"`

	OTelEndpoint string `koanf:"otel_endpoint"`
	ServiceName  string `koanf:"service_name"`
}

func New() *Config {
	return &Config{
		Addr:                   ":8090",
		LogLevel:               "info",
		AIProvider:             "openai",
		AITemperature:          0.7,
		AIMaxTokens:            2000,
		AIRequestsPerMinute:    30,
		FetchTimeoutSeconds:    10,
		FetchMaxURLs:           3,
		FetchMaxChars:          3000,
		FetchRequestsPerSecond: 2,
		Renderer:               "fpdf",
		ServiceName:            "proposal-vetting",
	}
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Load layers defaults, then the YAML file named by
// PROPOSAL_VETTING_CONFIG, then environment variables such as
// PROPOSAL_VETTING_AI_PROVIDER.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	switch c.AIProvider {
	case "openai", "anthropic":
	default:
		problems = append(problems, fmt.Sprintf("ai_provider %q must be openai or anthropic", c.AIProvider))
	}
	switch c.Renderer {
	case "fpdf", "chromium":
	default:
		problems = append(problems, fmt.Sprintf("renderer %q must be fpdf or chromium", c.Renderer))
	}
	if c.FetchTimeoutSeconds <= 0 {
		problems = append(problems, "fetch_timeout_seconds must be positive")
	}
	if c.FetchMaxURLs < 0 {
		problems = append(problems, "fetch_max_urls must not be negative")
	}
	if c.FetchMaxChars <= 0 {
		problems = append(problems, "fetch_max_chars must be positive")
	}
	if c.AIMaxTokens <= 0 {
		problems = append(problems, "ai_max_tokens must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
