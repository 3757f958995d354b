package ai

import (
	"context"
	"strings"
)

// chatBackend speaks the OpenAI chat completions API. xAI exposes the same shape.
type chatBackend struct {
	t       *Transport
	baseURL string
	apiKey  string
	model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (b *chatBackend) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	req := chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	var resp chatResponse
	err := b.t.PostJSON(ctx, strings.TrimRight(b.baseURL, "/")+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + b.apiKey}, req, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	return resp.Choices[0].Message.Content, nil
}
