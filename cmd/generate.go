package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/internal/pipeline"
)

// runner executes one generation request.
type runner interface {
	Run(ctx context.Context, req model.Request) (*pipeline.Result, error)
}

var (
	genURLs       []string
	genSubreddits []string
	genModel      string
	genTitle      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a blog post from URLs and subreddits",
	Example: `  blog-cli generate -u https://go.dev/blog/go1.24 -s golang -m claude -t "Go this week"
  blog-cli generate -s r/golang/comments/abc123/some_thread`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.ValidateBackend(genModel); err != nil {
			return err
		}

		env, err := initPipeline(ctx, "generate")
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.Request{
			Title:      genTitle,
			URLs:       genURLs,
			Subreddits: genSubreddits,
			Backend:    genModel,
		}
		return runAndPrint(ctx, os.Stdout, env.Pipeline, req)
	},
}

func init() {
	generateCmd.Flags().StringArrayVarP(&genURLs, "urls", "u", nil, "web page URL to include (repeatable)")
	generateCmd.Flags().StringArrayVarP(&genSubreddits, "subreddits", "s", nil, "subreddit name or thread URL to include (repeatable)")
	generateCmd.Flags().StringVarP(&genModel, "ai-model", "m", "openai", "generation backend: openai or claude")
	generateCmd.Flags().StringVarP(&genTitle, "title", "t", "", "title recorded with the run")
	rootCmd.AddCommand(generateCmd)
}

// runAndPrint runs req and prints warnings, the file path and the Markdown
// to out. Errors are printed to out as well and returned.
func runAndPrint(ctx context.Context, out io.Writer, r runner, req model.Request) error {
	res, err := r.Run(ctx, req)
	if res != nil {
		printWarnings(out, res.Warnings)
	}
	if err != nil {
		_, _ = fmt.Fprintf(out, "Error: %v\n", err)
		return err
	}

	_, _ = fmt.Fprintf(out, "Blog post saved to %s\n\n", res.FilePath)
	_, _ = fmt.Fprintln(out, res.Content)
	return nil
}

func printWarnings(out io.Writer, warnings []model.Warning) {
	for _, w := range warnings {
		label := w.Stage
		if w.Source != "" {
			label += "/" + string(w.Source)
		}
		hint := ""
		if w.Transient {
			hint = " (transient, retry may succeed)"
		}
		_, _ = fmt.Fprintf(out, "Warning [%s] %s: %s%s\n", label, w.Identifier, w.Message, hint)
	}
}
