package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Reddit    RedditConfig    `yaml:"reddit" mapstructure:"reddit"`
	Web       WebConfig       `yaml:"web" mapstructure:"web"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Annotate  AnnotateConfig  `yaml:"annotate" mapstructure:"annotate"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Publish   PublishConfig   `yaml:"publish" mapstructure:"publish"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// OpenAIConfig holds OpenAI API settings for generation and image description.
type OpenAIConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"` // 0 leaves the provider default
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RedditConfig holds Reddit API settings. Without client credentials the
// public JSON endpoints are used.
type RedditConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	OAuthURL     string `yaml:"oauth_url" mapstructure:"oauth_url"`
	TokenURL     string `yaml:"token_url" mapstructure:"token_url"`
	RatePerMin   int    `yaml:"rate_per_min" mapstructure:"rate_per_min"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// HasCredentials reports whether OAuth client credentials are configured.
func (r RedditConfig) HasCredentials() bool {
	return r.ClientID != "" && r.ClientSecret != ""
}

// WebConfig configures the web page fetcher.
type WebConfig struct {
	TimeoutSecs         int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent           string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes        int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	ReadabilityFallback bool   `yaml:"readability_fallback" mapstructure:"readability_fallback"`
}

// FetchConfig configures the fetch stage.
type FetchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// AnnotateConfig configures image alt-text annotation.
type AnnotateConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // "fallback" or "vision"
}

// OutputConfig configures where artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PublishConfig configures optional post-persistence sinks.
type PublishConfig struct {
	FTP    FTPConfig    `yaml:"ftp" mapstructure:"ftp"`
	Notion NotionConfig `yaml:"notion" mapstructure:"notion"`
}

// FTPConfig holds FTP upload settings. Empty Addr disables the sink.
type FTPConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// NotionConfig holds Notion publishing settings. Empty Token disables the sink.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have empty defaults so AutomaticEnv picks them up on Unmarshal.
	for _, key := range []string{
		"openai.key", "openai.base_url", "anthropic.key",
		"reddit.client_id", "reddit.client_secret",
		"store.database_url",
		"publish.ftp.addr", "publish.ftp.user", "publish.ftp.password", "publish.ftp.dir",
		"publish.notion.token", "publish.notion.database_id",
	} {
		v.SetDefault(key, "")
	}

	// Defaults
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.vision_model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("reddit.user_agent", "blog-cli/1.0")
	v.SetDefault("reddit.base_url", "https://www.reddit.com")
	v.SetDefault("reddit.oauth_url", "https://oauth.reddit.com")
	v.SetDefault("reddit.token_url", "https://www.reddit.com/api/v1/access_token")
	v.SetDefault("reddit.rate_per_min", 60)
	v.SetDefault("reddit.timeout_secs", 15)
	v.SetDefault("web.timeout_secs", 15)
	v.SetDefault("web.user_agent", "Mozilla/5.0 (compatible; blog-cli/1.0)")
	v.SetDefault("web.max_body_bytes", 2*1024*1024)
	v.SetDefault("web.readability_fallback", false)
	v.SetDefault("fetch.concurrency", 1)
	v.SetDefault("annotate.mode", "fallback")
	v.SetDefault("output.dir", "blogs")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("publish.ftp.timeout_secs", 10)
	v.SetDefault("batch.max_concurrent", 3)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.rate_limit_rps", 1.0)
	v.SetDefault("server.rate_limit_burst", 5)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error. Variables already set are left alone.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return eris.Wrap(err, "config: stat .env")
	}
	if err := godotenv.Load(path); err != nil {
		return eris.Wrap(err, "config: load .env")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
