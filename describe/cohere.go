package describe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereRewriter restyles captions with the Cohere Chat API.
type CohereRewriter struct {
	client *cohereclient.Client
	model  string
}

func NewCohereRewriter(apiKey, model string) *CohereRewriter {
	if model == "" {
		model = "command-r-08-2024"
	}
	// Force HTTP/1.1 to avoid HTTP/2 protocol errors seen against the
	// Cohere endpoint.
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereRewriter{client: client, model: model}
}

func (c *CohereRewriter) Rewrite(ctx context.Context, caption, style string) (string, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prompt := StylePrompt(style) + "\n\nCaption:\n" + caption
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message: prompt,
		Model:   &c.model,
	})
	if err != nil {
		return "", fmt.Errorf("cohere rewrite: %w", err)
	}

	out := strings.TrimSpace(resp.Text)
	out = strings.Trim(out, `"`)
	if out == "" {
		return caption, nil
	}
	return out, nil
}
