package describe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const describePrompt = "You create viral short-form video content. Describe this scene in ONE " +
	"short, emotionally compelling sentence that makes someone want to visit. " +
	"Aesthetic, vivid, persuasive. No hashtags or emojis."

// OpenAIDescriber produces scene descriptions with an OpenAI vision model.
type OpenAIDescriber struct {
	client *openai.Client
	model  string
}

func NewOpenAIDescriber(apiKey, model string) *OpenAIDescriber {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIDescriber{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAIDescriber) ModelName() string { return o.model }

func (o *OpenAIDescriber) DescribeClip(ctx context.Context, name string, frameURLs []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: describePrompt + "\nClip: " + name},
	}
	for _, u := range frameURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: u},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		Temperature: 0.6,
	})
	if err != nil {
		if isUnreachable(err) {
			return "", fmt.Errorf("openai: %w", ErrDescriberDown)
		}
		return "", fmt.Errorf("openai describe %s: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai describe %s: empty response", name)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// isUnreachable distinguishes infrastructure failures (network, timeout)
// from per-request failures.
func isUnreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}
