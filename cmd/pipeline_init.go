package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/internal/annotate"
	"github.com/sells-group/blog-cli/internal/artifact"
	"github.com/sells-group/blog-cli/internal/config"
	"github.com/sells-group/blog-cli/internal/cost"
	"github.com/sells-group/blog-cli/internal/generate"
	"github.com/sells-group/blog-cli/internal/pipeline"
	"github.com/sells-group/blog-cli/internal/publish"
	"github.com/sells-group/blog-cli/internal/source"
	"github.com/sells-group/blog-cli/internal/store"
	anthropicpkg "github.com/sells-group/blog-cli/pkg/anthropic"
	"github.com/sells-group/blog-cli/pkg/notion"
	openaipkg "github.com/sells-group/blog-cli/pkg/openai"
	"github.com/sells-group/blog-cli/pkg/reddit"
)

// pipelineEnv holds the initialized pipeline and the resources it owns,
// shared by the generate/interactive/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store // may be nil
	Pipeline *pipeline.Pipeline
	Metrics  *pipeline.Metrics
	Registry *prometheus.Registry
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, builds all clients and returns
// the pipeline. The run ledger is optional: if it cannot be opened the
// pipeline still runs. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pipeline.NewMetrics(reg)
	metrics.Pricing = cost.NewCalculator(cost.DefaultRates())

	backends := buildBackends(cfg, metrics.ObserveUsage)
	if len(backends.Kinds()) == 0 {
		return nil, eris.New("no generation backend configured (set openai.key or anthropic.key)")
	}

	web := source.NewWebFetcher(
		source.WithWebTimeout(time.Duration(cfg.Web.TimeoutSecs)*time.Second),
		source.WithUserAgent(cfg.Web.UserAgent),
		source.WithMaxBodyBytes(cfg.Web.MaxBodyBytes),
		source.WithReadabilityFallback(cfg.Web.ReadabilityFallback),
	)
	social := source.NewSocialFetcher(buildRedditClient(cfg.Reddit))

	opts := []pipeline.Option{
		pipeline.WithConcurrency(cfg.Fetch.Concurrency),
		pipeline.WithMetrics(metrics),
	}

	st, err := openStore(ctx)
	if err != nil {
		zap.L().Warn("run ledger unavailable, runs will not be recorded", zap.Error(err))
	} else {
		opts = append(opts, pipeline.WithStore(st))
	}

	pub := buildPublisher(cfg.Publish)
	if sinks := pub.Sinks(); len(sinks) > 0 {
		opts = append(opts, pipeline.WithPublisher(pub))
		zap.L().Info("publish sinks enabled", zap.Strings("sinks", sinks))
	}

	p := pipeline.New(web, social, buildAnnotator(cfg), backends, artifact.NewWriter(cfg.Output.Dir), opts...)

	kinds := make([]string, 0, len(backends.Kinds()))
	for _, k := range backends.Kinds() {
		kinds = append(kinds, string(k))
	}
	zap.L().Info("pipeline ready",
		zap.Strings("backends", kinds),
		zap.String("annotate_mode", cfg.Annotate.Mode),
		zap.Int("fetch_concurrency", cfg.Fetch.Concurrency),
		zap.String("output_dir", cfg.Output.Dir),
	)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Metrics:  metrics,
		Registry: reg,
	}, nil
}

// buildBackends registers a backend for every provider with a key.
func buildBackends(c *config.Config, onUsage generate.UsageFunc) *generate.Registry {
	r := generate.NewRegistry()
	if c.OpenAI.Key != "" {
		client := openaipkg.NewClient(c.OpenAI.Key, c.OpenAI.BaseURL)
		r.Register(generate.NewOpenAIBackend(client, c.OpenAI.Model, c.OpenAI.MaxTokens, onUsage))
	}
	if c.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(c.Anthropic.Key)
		r.Register(generate.NewClaudeBackend(client, c.Anthropic.Model, c.Anthropic.MaxTokens, onUsage))
	}
	return r
}

func buildRedditClient(rc config.RedditConfig) reddit.Client {
	opts := []reddit.Option{
		reddit.WithUserAgent(rc.UserAgent),
		reddit.WithBaseURL(rc.BaseURL),
		reddit.WithOAuthURL(rc.OAuthURL),
		reddit.WithTokenURL(rc.TokenURL),
		reddit.WithRateLimit(rc.RatePerMin),
		reddit.WithTimeout(time.Duration(rc.TimeoutSecs) * time.Second),
	}
	if rc.HasCredentials() {
		opts = append(opts, reddit.WithCredentials(rc.ClientID, rc.ClientSecret))
	} else {
		zap.L().Debug("reddit credentials not set, using public JSON API")
	}
	return reddit.NewClient(opts...)
}

func buildAnnotator(c *config.Config) *annotate.Annotator {
	if annotate.Mode(c.Annotate.Mode) != annotate.ModeVision || c.OpenAI.Key == "" {
		return annotate.New(nil)
	}
	client := openaipkg.NewClient(c.OpenAI.Key, c.OpenAI.BaseURL)
	return annotate.New(annotate.NewVisionDescriber(client, c.OpenAI.VisionModel))
}

func buildPublisher(pc config.PublishConfig) *publish.Publisher {
	var sinks []publish.Sink
	if pc.FTP.Addr != "" {
		sinks = append(sinks, publish.NewFTPSink(publish.FTPOptions{
			Addr:     pc.FTP.Addr,
			User:     pc.FTP.User,
			Password: pc.FTP.Password,
			Dir:      pc.FTP.Dir,
			Timeout:  time.Duration(pc.FTP.TimeoutSecs) * time.Second,
		}))
	}
	if pc.Notion.Token != "" && pc.Notion.DatabaseID != "" {
		sinks = append(sinks, publish.NewNotionSink(notion.NewClient(pc.Notion.Token), pc.Notion.DatabaseID))
	}
	return publish.NewPublisher(sinks...)
}
