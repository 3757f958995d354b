package images

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

var ErrNoImage = errors.New("image model returned no image")

// Gemini renders images with a Gemini image-capable model.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate sends the prompt, and the reference picture when present, and returns the first inline image.
func (g *Gemini) Generate(ctx context.Context, prompt string, ref *Image) (Image, error) {
	parts := []*genai.Part{{Text: prompt}}
	if ref != nil && len(ref.Data) > 0 {
		parts = append(parts,
			&genai.Part{InlineData: &genai.Blob{Data: ref.Data, MIMEType: ref.MIMEType}},
			&genai.Part{Text: "Keep the person's face, hair and overall look consistent with the attached reference image."},
		)
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	cfg := &genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Image{}, fmt.Errorf("gemini generate: %w", err)
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				mime := p.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return Image{Data: p.InlineData.Data, MIMEType: mime}, nil
			}
		}
	}
	return Image{}, ErrNoImage
}
