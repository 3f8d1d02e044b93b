package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/blog-cli/internal/model"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Prompt for sources and generate a blog post",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req, err := promptRequest(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		if err := cfg.ValidateBackend(req.Backend); err != nil {
			return err
		}

		env, err := initPipeline(ctx, "generate")
		if err != nil {
			return err
		}
		defer env.Close()

		return runAndPrint(ctx, os.Stdout, env.Pipeline, req)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

// promptRequest reads a request from in. URLs and subreddits are entered one
// per line and a blank line ends each list. An empty model answer means
// openai.
func promptRequest(in io.Reader, out io.Writer) (model.Request, error) {
	sc := bufio.NewScanner(in)
	var req model.Request

	title, err := promptLine(sc, out, "Title: ")
	if err != nil {
		return req, err
	}
	req.Title = title

	if req.URLs, err = promptList(sc, out, "Enter URLs (one per line, blank line to finish):"); err != nil {
		return req, err
	}
	if req.Subreddits, err = promptList(sc, out, "Enter subreddits or thread URLs (one per line, blank line to finish):"); err != nil {
		return req, err
	}

	for {
		m, err := promptLine(sc, out, "AI model [openai/claude] (default openai): ")
		if err != nil {
			return req, err
		}
		m = strings.ToLower(m)
		if m == "" {
			m = "openai"
		}
		if m == "openai" || m == "claude" {
			req.Backend = m
			break
		}
		_, _ = fmt.Fprintf(out, "Unknown model %q.\n", m)
	}

	return req.Clean(), nil
}

func promptLine(sc *bufio.Scanner, out io.Writer, prompt string) (string, error) {
	_, _ = fmt.Fprint(out, prompt)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", eris.Wrap(err, "interactive: read input")
		}
		return "", eris.New("interactive: unexpected end of input")
	}
	return strings.TrimSpace(sc.Text()), nil
}

func promptList(sc *bufio.Scanner, out io.Writer, header string) ([]string, error) {
	_, _ = fmt.Fprintln(out, header)
	var items []string
	for {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, eris.Wrap(err, "interactive: read input")
			}
			return items, nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			return items, nil
		}
		items = append(items, line)
	}
}
