package generate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/pkg/anthropic"
)

const defaultClaudeMaxTokens = 1000

// ClaudeBackend generates through the Anthropic Messages API.
type ClaudeBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	onUsage   UsageFunc
}

// NewClaudeBackend creates a ClaudeBackend. maxTokens <= 0 uses 1000.
func NewClaudeBackend(client anthropic.Client, model string, maxTokens int64, onUsage UsageFunc) *ClaudeBackend {
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	return &ClaudeBackend{client: client, model: model, maxTokens: maxTokens, onUsage: onUsage}
}

func (b *ClaudeBackend) Kind() Kind { return KindClaude }

// Generate implements Backend.
func (b *ClaudeBackend) Generate(ctx context.Context, items []*model.ContentItem) (string, error) {
	if len(items) == 0 {
		return "", genErr(KindClaude, eris.New("no content items"))
	}

	payload := BuildPayload(items)
	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		System:    SystemFraming,
		Messages:  []anthropic.Message{{Role: "user", Content: UserMessage(payload)}},
	})
	if err != nil {
		return "", genErr(KindClaude, err)
	}

	resp.Usage.LogCost(b.model, "generate")
	if b.onUsage != nil {
		b.onUsage(Usage{
			Backend:      KindClaude,
			Model:        b.model,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		})
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", genErr(KindClaude, eris.Errorf("empty response (stop_reason=%s)", resp.StopReason))
	}
	if resp.StopReason == "max_tokens" {
		zap.L().Warn("generate: claude reply truncated at max tokens",
			zap.String("model", b.model), zap.Int64("max_tokens", b.maxTokens))
	}
	return text, nil
}
