package images

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"ambitious/internal/ai"
	"ambitious/internal/logging"
	"ambitious/internal/metrics"
	"ambitious/internal/model"
)

var ErrDisabled = errors.New("image generation not configured")

// Pipeline runs prompt brief, render and upload for one post. A nil or unconfigured Pipeline never produces images.
type Pipeline struct {
	model   Model
	store   Storage
	fetcher *Fetcher

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPipeline(m Model, s Storage, f *Fetcher, rnd *rand.Rand) *Pipeline {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if f == nil {
		f = NewFetcher(0)
	}
	return &Pipeline{model: m, store: s, fetcher: f, rnd: rnd}
}

func (p *Pipeline) Enabled() bool { return p != nil && p.model != nil && p.store != nil }

// Roll draws against the NPC's image frequency.
func (p *Pipeline) Roll(f model.ImageFrequency) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ShouldGenerate(f, p.rnd)
}

// LoadReference fetches the NPC's reference image, or its avatar when none is set.
// Failures are logged and yield nil.
func (p *Pipeline) LoadReference(ctx context.Context, npc model.NPCProfile) *Image {
	url := npc.ReferenceImageURL
	if url == "" {
		url = npc.AvatarURL
	}
	if url == "" || !p.Enabled() {
		return nil
	}
	img, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		logging.Warn("reference image fetch failed", map[string]any{"npc_id": npc.ID, "url": url, "error": err})
		return nil
	}
	return &img
}

// Result is the image attached to one post.
type Result struct {
	URL    string
	Prompt string
}

// ForPost tries to attach an image to a finished post. ok is false on any failure; the post goes out without one.
func (p *Pipeline) ForPost(ctx context.Context, c ai.Completer, npc model.NPCProfile, content string, postType model.PostType, ref *Image) (Result, bool) {
	if !p.Enabled() {
		return Result{}, false
	}
	fields := map[string]any{"npc_id": npc.ID, "persona": npc.PersonaName}
	brief, err := GenerateImagePrompt(ctx, c, content, postType, npc.PreferredImageStyle, npc.VisualPersona)
	if err != nil {
		fields["error"] = err
		logging.Warn("image prompt generation failed", fields)
		metrics.IncImage("failed")
		return Result{}, false
	}
	prompt := BuildCompleteImagePrompt(brief, npc.PreferredImageStyle, npc.VisualPersona)
	if !brief.ShouldIncludeCharacter {
		ref = nil
	}
	url, err := p.render(ctx, npc.ID, "post", prompt, ref)
	if err != nil {
		fields["error"] = err
		logging.Warn("post image failed", fields)
		metrics.IncImage("failed")
		return Result{}, false
	}
	metrics.IncImage("generated")
	return Result{URL: url, Prompt: prompt}, true
}

func (p *Pipeline) render(ctx context.Context, npcID, kind, prompt string, ref *Image) (string, error) {
	img, err := p.model.Generate(ctx, prompt, ref)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("npc-images/%s/%s-%s%s", npcID, kind, uuid.NewString(), extension(img.MIMEType))
	return p.store.Put(ctx, key, img)
}
