package generate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/pkg/openai"
)

// OpenAIBackend generates through OpenAI chat completions.
type OpenAIBackend struct {
	client    openai.Client
	model     string
	maxTokens int64
	onUsage   UsageFunc
}

// NewOpenAIBackend creates an OpenAIBackend. maxTokens 0 leaves the provider default.
func NewOpenAIBackend(client openai.Client, model string, maxTokens int64, onUsage UsageFunc) *OpenAIBackend {
	return &OpenAIBackend{client: client, model: model, maxTokens: maxTokens, onUsage: onUsage}
}

func (b *OpenAIBackend) Kind() Kind { return KindOpenAI }

// Generate implements Backend.
func (b *OpenAIBackend) Generate(ctx context.Context, items []*model.ContentItem) (string, error) {
	if len(items) == 0 {
		return "", genErr(KindOpenAI, eris.New("no content items"))
	}

	payload := BuildPayload(items)
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		System:    SystemFraming,
		Messages:  []openai.Message{{Role: "user", Content: UserMessage(payload)}},
	})
	if err != nil {
		return "", genErr(KindOpenAI, err)
	}

	resp.Usage.LogUsage(b.model, "generate")
	if b.onUsage != nil {
		b.onUsage(Usage{
			Backend:      KindOpenAI,
			Model:        b.model,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		})
	}

	if strings.TrimSpace(resp.Content) == "" {
		return "", genErr(KindOpenAI, eris.Errorf("empty response (finish_reason=%s)", resp.FinishReason))
	}
	if resp.FinishReason == "length" {
		zap.L().Warn("generate: openai reply truncated at max tokens",
			zap.String("model", b.model), zap.Int64("max_tokens", b.maxTokens))
	}
	return resp.Content, nil
}
