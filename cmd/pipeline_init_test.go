package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/blog-cli/internal/annotate"
	"github.com/sells-group/blog-cli/internal/config"
	"github.com/sells-group/blog-cli/internal/generate"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestBuildBackends(t *testing.T) {
	c := &config.Config{}
	assert.Empty(t, buildBackends(c, nil).Kinds())

	c.OpenAI.Key = "sk-test"
	assert.Equal(t, []generate.Kind{generate.KindOpenAI}, buildBackends(c, nil).Kinds())

	c.Anthropic.Key = "sk-ant-test"
	assert.Equal(t, []generate.Kind{generate.KindClaude, generate.KindOpenAI}, buildBackends(c, nil).Kinds())
}

func TestBuildAnnotator(t *testing.T) {
	c := &config.Config{Annotate: config.AnnotateConfig{Mode: "vision"}}
	assert.Equal(t, annotate.ModeFallback, buildAnnotator(c).Mode())

	c.OpenAI.Key = "sk-test"
	assert.Equal(t, annotate.ModeVision, buildAnnotator(c).Mode())

	c.Annotate.Mode = "fallback"
	assert.Equal(t, annotate.ModeFallback, buildAnnotator(c).Mode())
}

func TestBuildPublisher(t *testing.T) {
	assert.Empty(t, buildPublisher(config.PublishConfig{}).Sinks())

	pc := config.PublishConfig{
		FTP:    config.FTPConfig{Addr: "ftp.example.com"},
		Notion: config.NotionConfig{Token: "secret"},
	}
	assert.Equal(t, []string{"ftp"}, buildPublisher(pc).Sinks())

	pc.Notion.DatabaseID = "db"
	assert.Equal(t, []string{"ftp", "notion"}, buildPublisher(pc).Sinks())
}

func TestOpenStore_SQLite(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "runs.db"),
	}})

	st, err := openStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mysql"}})

	_, err := initStore(context.Background())
	assert.ErrorContains(t, err, "unsupported store driver: mysql")
}

func TestInitPipeline_RequiresBackend(t *testing.T) {
	withConfig(t, &config.Config{
		Fetch:    config.FetchConfig{Concurrency: 1},
		Annotate: config.AnnotateConfig{Mode: "fallback"},
		Output:   config.OutputConfig{Dir: t.TempDir()},
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "runs.db")},
	})

	_, err := initPipeline(context.Background(), "generate")
	assert.ErrorContains(t, err, "no generation backend configured")
}

func TestInitPipeline(t *testing.T) {
	withConfig(t, &config.Config{
		Anthropic: config.AnthropicConfig{Key: "sk-ant-test", Model: "claude-sonnet-4-5-20250929"},
		Fetch:     config.FetchConfig{Concurrency: 4},
		Annotate:  config.AnnotateConfig{Mode: "fallback"},
		Output:    config.OutputConfig{Dir: t.TempDir()},
		Store:     config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "runs.db")},
	})

	env, err := initPipeline(context.Background(), "generate")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Metrics)
	assert.Equal(t, []generate.Kind{generate.KindClaude}, env.Pipeline.Backends())
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	withConfig(t, &config.Config{Annotate: config.AnnotateConfig{Mode: "psychic"}})

	_, err := initPipeline(context.Background(), "generate")
	assert.ErrorContains(t, err, "annotate.mode")
}
