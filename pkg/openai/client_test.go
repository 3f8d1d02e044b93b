package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates an sdkClient pointing at a local test server.
func newTestClient(baseURL string) *sdkClient {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
	}
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-001",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49},
	}
}

func TestSDKClient_CreateChatCompletion(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/chat/completions")
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionBody("# Blog")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateChatCompletion(context.Background(), ChatRequest{
		Model:     "gpt-4o",
		MaxTokens: 512,
		System:    "You are a writer.",
		Messages:  []Message{{Role: "user", Content: "Write."}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-001", resp.ID)
	assert.Equal(t, "# Blog", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, int64(42), resp.Usage.PromptTokens)
	assert.Equal(t, int64(7), resp.Usage.CompletionTokens)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.EqualValues(t, 512, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "You are a writer.", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "Write.", msgs[1].(map[string]any)["content"])
}

func TestSDKClient_VisionMessage(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionBody("A cat on a sofa")) //nolint:errcheck
	}))
	defer ts.Close()

	resp, err := newTestClient(ts.URL).CreateChatCompletion(context.Background(), ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []Message{{
			Role:      "user",
			Content:   "Describe this image.",
			ImageURLs: []string{"https://img.example.com/cat.png"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A cat on a sofa", resp.Content)

	_, hasMax := got["max_tokens"]
	assert.False(t, hasMax)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	parts, ok := msgs[0].(map[string]any)["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "https://img.example.com/cat.png", imageURL["url"])
}

func TestSDKClient_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CreateChatCompletion(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: create chat completion")
}

func TestFromSDKCompletion_NoChoices(t *testing.T) {
	resp := fromSDKCompletion(&sdk.ChatCompletion{ID: "empty", Model: "gpt-4o"})
	assert.Equal(t, "empty", resp.ID)
	assert.Empty(t, resp.Content)
}

func TestToSDKMessages_AssistantAndNoSystem(t *testing.T) {
	msgs := toSDKMessages("", []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.Len(t, msgs, 2)
	assert.NotNil(t, msgs[0].OfUser)
	assert.NotNil(t, msgs[1].OfAssistant)
}
