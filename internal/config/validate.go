package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Backend names accepted by HasBackend and ValidateBackend.
const (
	BackendOpenAI = "openai"
	BackendClaude = "claude"
)

// Validate checks the settings a command mode depends on and reports every
// problem at once. Modes: generate, serve, batch, runs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "generate":
		errs = append(errs, c.validateGenerate()...)
	case "serve":
		errs = append(errs, c.validateGenerate()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS < 0 {
			errs = append(errs, "server.rate_limit_rps must be >= 0")
		}
		if !c.HasBackend(BackendOpenAI) && !c.HasBackend(BackendClaude) {
			errs = append(errs, "openai.key or anthropic.key is required")
		}
	case "batch":
		errs = append(errs, c.validateGenerate()...)
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 20 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 20")
		}
	case "runs":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateGenerate() []string {
	var errs []string
	if strings.TrimSpace(c.Output.Dir) == "" {
		errs = append(errs, "output.dir is required")
	}
	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > 32 {
		errs = append(errs, "fetch.concurrency must be between 1 and 32")
	}
	switch c.Annotate.Mode {
	case "fallback":
	case "vision":
		if c.OpenAI.Key == "" {
			errs = append(errs, "openai.key is required when annotate.mode is vision")
		}
	default:
		errs = append(errs, fmt.Sprintf("annotate.mode %q must be fallback or vision", c.Annotate.Mode))
	}
	if c.Reddit.ClientID != "" && c.Reddit.ClientSecret == "" {
		errs = append(errs, "reddit.client_secret is required when reddit.client_id is set")
	}
	return append(errs, c.validateStore()...)
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "", "sqlite":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver)}
	}
}

// HasBackend reports whether credentials for the named backend are present.
func (c *Config) HasBackend(name string) bool {
	switch strings.ToLower(name) {
	case BackendOpenAI:
		return c.OpenAI.Key != ""
	case BackendClaude:
		return c.Anthropic.Key != ""
	default:
		return false
	}
}

// ValidateBackend fails fast when the requested backend has no credentials.
func (c *Config) ValidateBackend(name string) error {
	switch strings.ToLower(name) {
	case BackendOpenAI:
		if c.OpenAI.Key == "" {
			return eris.New("config: openai.key is required for the openai backend")
		}
	case BackendClaude:
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required for the claude backend")
		}
	default:
		return eris.Errorf("config: unknown backend %q", name)
	}
	return nil
}
