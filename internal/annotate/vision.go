package annotate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/pkg/openai"
)

// VisionPrompt is sent alongside every image.
const VisionPrompt = "Generate a concise, descriptive alt text for this image."

const visionMaxTokens = 100

// VisionDescriber describes images with an OpenAI vision-capable model.
type VisionDescriber struct {
	client openai.Client
	model  string
}

// NewVisionDescriber creates a VisionDescriber.
func NewVisionDescriber(client openai.Client, model string) *VisionDescriber {
	return &VisionDescriber{client: client, model: model}
}

// Describe implements Describer.
func (v *VisionDescriber) Describe(ctx context.Context, img model.ImageRef) (string, error) {
	if img.URL == "" {
		return "", eris.New("annotate: image has no url")
	}

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:     v.model,
		MaxTokens: visionMaxTokens,
		Messages: []openai.Message{{
			Role:      "user",
			Content:   VisionPrompt,
			ImageURLs: []string{img.URL},
		}},
	})
	if err != nil {
		return "", eris.Wrap(err, "annotate: vision request")
	}
	resp.Usage.LogUsage(v.model, "annotate")

	if resp.Content == "" {
		return "", eris.New("annotate: empty vision response")
	}
	return resp.Content, nil
}
