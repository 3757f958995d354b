// Package ai writes NPC posts and comments through interchangeable text providers.
package ai

import (
	"context"
	"errors"
	"fmt"

	"ambitious/internal/model"
	"ambitious/internal/util"
)

var (
	ErrUnknownModel  = errors.New("unknown ai model")
	ErrNotConfigured = errors.New("ai provider not configured")
	ErrEmptyOutput   = errors.New("ai provider returned empty text")
)

// Persona is the identity that conditions generated text.
type Persona struct {
	Name        string
	Description string
	// Prompt, when set, overrides Description as the full character prompt.
	Prompt string
	Tone   model.Tone
	Topics []string
}

// PersonaOf extracts the persona fields of a profile.
func PersonaOf(p model.NPCProfile) Persona {
	return Persona{
		Name:        p.PersonaName,
		Description: p.PersonaDescription,
		Prompt:      p.PersonaPrompt,
		Tone:        p.Tone,
		Topics:      p.Topics,
	}
}

type PostRequest struct {
	Persona  Persona
	PostType model.PostType
	// PreviousPosts are recent bodies the new post must not echo, newest first.
	PreviousPosts []string
}

type PostResult struct {
	Content  string
	PostType model.PostType
	// Prompt is the user prompt sent, kept for the queue's audit column.
	Prompt string
}

type CommentRequest struct {
	Persona        Persona
	Style          model.EngagementStyle
	PostContent    string
	PostType       model.PostType
	AuthorUsername string
}

type CommentResult struct {
	Content string
}

// Completer is the raw text capability. Image prompt and visual persona generation only need this.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Provider is one text backend bound to a temperature.
type Provider interface {
	Completer
	Name() model.AIModel
	GeneratePost(ctx context.Context, req PostRequest) (PostResult, error)
	GenerateComment(ctx context.Context, req CommentRequest) (CommentResult, error)
}

// backend is the wire-level call of one vendor API.
type backend interface {
	complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

const (
	postMaxTokens     = 400
	commentMaxTokens  = 150
	completeMaxTokens = 800
)

// textProvider implements Provider over any backend; the prompts are shared across vendors.
type textProvider struct {
	name        model.AIModel
	backend     backend
	temperature float64
}

func (p *textProvider) Name() model.AIModel { return p.name }

func (p *textProvider) Complete(ctx context.Context, system, user string) (string, error) {
	out, err := p.backend.complete(ctx, system, user, p.temperature, completeMaxTokens)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (p *textProvider) GeneratePost(ctx context.Context, req PostRequest) (PostResult, error) {
	system := PostSystemPrompt(req.Persona)
	user := PostUserPrompt(req)
	out, err := p.backend.complete(ctx, system, user, p.temperature, postMaxTokens)
	if err != nil {
		return PostResult{}, fmt.Errorf("%s generate post: %w", p.name, err)
	}
	text := util.CleanModelText(out)
	if text == "" {
		return PostResult{}, fmt.Errorf("%s generate post: %w", p.name, ErrEmptyOutput)
	}
	return PostResult{Content: text, PostType: req.PostType, Prompt: user}, nil
}

func (p *textProvider) GenerateComment(ctx context.Context, req CommentRequest) (CommentResult, error) {
	out, err := p.backend.complete(ctx, CommentSystemPrompt(req.Persona, req.Style), CommentUserPrompt(req), p.temperature, commentMaxTokens)
	if err != nil {
		return CommentResult{}, fmt.Errorf("%s generate comment: %w", p.name, err)
	}
	text := util.CleanModelText(out)
	if text == "" {
		return CommentResult{}, fmt.Errorf("%s generate comment: %w", p.name, ErrEmptyOutput)
	}
	return CommentResult{Content: text}, nil
}
