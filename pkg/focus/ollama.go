package focus

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultTimeout bounds a model query when the context has no deadline
const DefaultTimeout = 300 * time.Second

// OllamaClient is a VisionClient backed by an Ollama server
type OllamaClient struct {
	client *api.Client
}

// NewOllamaClient connects to the server at rawURL. Any path, such as
// /api/chat, is ignored.
func NewOllamaClient(rawURL string, httpClient *http.Client) (*OllamaClient, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host required", rawURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaClient{client: api.NewClient(base, httpClient)}, nil
}

// Query implements VisionClient
func (c *OllamaClient) Query(ctx context.Context, model, prompt string, jpegData []byte) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{{
			Role:    "user",
			Content: prompt,
			Images:  []api.ImageData{api.ImageData(jpegData)},
		}},
		Stream:  &stream,
		Options: modelOptions(model),
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return content.String(), nil
}

// modelOptions returns sampling options for models known to need them
func modelOptions(model string) map[string]any {
	m := strings.ToLower(model)
	if strings.Contains(m, "minicpm-v4") || strings.Contains(m, "minicpm-v-4") || strings.Contains(m, "minicpmv4") {
		return map[string]any{"temperature": 0.7, "top_p": 0.8, "num_ctx": 4096}
	}
	return nil
}
