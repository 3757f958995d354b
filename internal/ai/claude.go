package ai

import (
	"context"
	"strings"
)

const anthropicVersion = "2023-06-01"

// claudeBackend speaks the Anthropic messages API.
type claudeBackend struct {
	t       *Transport
	baseURL string
	apiKey  string
	model   string
}

type claudeRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (b *claudeBackend) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	if temperature > 1 {
		temperature = 1
	}
	req := claudeRequest{
		Model:       b.model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    []chatMessage{{Role: "user", Content: user}},
		Temperature: temperature,
	}
	var resp claudeResponse
	err := b.t.PostJSON(ctx, strings.TrimRight(b.baseURL, "/")+"/messages", map[string]string{
		"x-api-key":         b.apiKey,
		"anthropic-version": anthropicVersion,
	}, req, &resp)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, c := range resp.Content {
		if c.Type == "" || c.Type == "text" {
			out.WriteString(c.Text)
		}
	}
	if out.Len() == 0 {
		return "", ErrEmptyOutput
	}
	return out.String(), nil
}
