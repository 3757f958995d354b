// Package content fills NPC post queues and publishes what comes due.
package content

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ambitious/internal/ai"
	"ambitious/internal/images"
	"ambitious/internal/logging"
	"ambitious/internal/metrics"
	"ambitious/internal/model"
	"ambitious/internal/schedule"
	"ambitious/internal/store"
	"ambitious/internal/util"
)

var (
	ErrNPCNotFound = errors.New("npc not found")
	ErrNPCInactive = errors.New("npc is inactive")
)

// Store is the slice of the data store the generator needs.
type Store interface {
	GetNPCByID(ctx context.Context, id string) (model.NPCProfile, error)
	GetActiveNPCsForProcessing(ctx context.Context) ([]model.NPCProfile, error)
	GetRecentNPCPosts(ctx context.Context, npcID string, limit int) ([]string, error)
	AddToQueue(ctx context.Context, item *model.ScheduledPost) error
	CountQueueItems(ctx context.Context, npcID string, status model.QueueStatus) (int, error)
	IncrementNPCStat(ctx context.Context, npcID string, stat model.Stat) error
	UpdateNPCActivity(ctx context.Context, npcID string, at time.Time) error
}

// ProviderFactory builds the text provider an NPC is configured for.
type ProviderFactory interface {
	New(m model.AIModel, temperature float64) (ai.Provider, error)
}

// ImagePipeline is the optional image enrichment step.
type ImagePipeline interface {
	Enabled() bool
	Roll(f model.ImageFrequency) bool
	LoadReference(ctx context.Context, npc model.NPCProfile) *images.Image
	ForPost(ctx context.Context, c ai.Completer, npc model.NPCProfile, content string, postType model.PostType, ref *images.Image) (images.Result, bool)
}

// Options tunes pacing and history depth.
type Options struct {
	HistoryLimit  int
	ProviderDelay time.Duration
	NPCDelay      time.Duration
}

// Generator writes posts for NPCs into the queue.
type Generator struct {
	store     Store
	providers ProviderFactory
	images    ImagePipeline
	schedule  *schedule.Calculator
	opts      Options
	now       func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator wires a generator. imgs may be nil to disable images.
func NewGenerator(s Store, providers ProviderFactory, imgs ImagePipeline, sched *schedule.Calculator, opts Options) *Generator {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 15
	}
	if sched == nil {
		sched = schedule.New(nil)
	}
	return &Generator{
		store:     s,
		providers: providers,
		images:    imgs,
		schedule:  sched,
		opts:      opts,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the post type source; tests use it for determinism.
func (g *Generator) WithRand(rnd *rand.Rand) *Generator {
	g.rnd = rnd
	return g
}

// WithClock replaces the time source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

func (g *Generator) pickType(types []model.PostType) model.PostType {
	if len(types) == 0 {
		return model.PostTypeGeneral
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return types[g.rnd.Intn(len(types))]
}

// loadActive resolves npcID and enforces the active precondition.
func (g *Generator) loadActive(ctx context.Context, npcID string) (model.NPCProfile, error) {
	npc, err := g.store.GetNPCByID(ctx, npcID)
	if errors.Is(err, store.ErrNotFound) {
		return npc, fmt.Errorf("%w: %s", ErrNPCNotFound, npcID)
	}
	if err != nil {
		return npc, err
	}
	if !npc.IsActive {
		return npc, fmt.Errorf("%w: %s", ErrNPCInactive, npc.PersonaName)
	}
	return npc, nil
}

// GeneratePostsForNPC generates up to count posts and queues each as pending.
// A failed slot is logged and skipped; every returned item is already queued.
func (g *Generator) GeneratePostsForNPC(ctx context.Context, npcID string, count int) ([]model.ScheduledPost, error) {
	npc, err := g.loadActive(ctx, npcID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}
	provider, err := g.providers.New(npc.AIModel, npc.Temperature)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, npc, provider, count), nil
}

func (g *Generator) generate(ctx context.Context, npc model.NPCProfile, provider ai.Provider, count int) []model.ScheduledPost {
	fields := func(extra map[string]any) map[string]any {
		f := map[string]any{"npc_id": npc.ID, "persona": npc.PersonaName}
		for k, v := range extra {
			f[k] = v
		}
		return f
	}

	history, err := g.store.GetRecentNPCPosts(ctx, npc.ID, g.opts.HistoryLimit)
	if err != nil {
		logging.Warn("load post history failed", fields(map[string]any{"error": err}))
	}

	withImages := npc.GenerateImages && g.images != nil && g.images.Enabled()
	var ref *images.Image
	if withImages {
		ref = g.images.LoadReference(ctx, npc)
	}

	persona := ai.PersonaOf(npc)
	times := g.schedule.PostTimes(npc.PostingTimes, count, g.now())
	out := make([]model.ScheduledPost, 0, count)
	for i, at := range times {
		if i > 0 {
			if err := util.Sleep(ctx, g.opts.ProviderDelay); err != nil {
				break
			}
		}
		postType := g.pickType(npc.PostTypes)
		res, err := provider.GeneratePost(ctx, ai.PostRequest{Persona: persona, PostType: postType, PreviousPosts: history})
		if err != nil {
			metrics.IncGenerationFailure("text")
			logging.Warn("post generation failed", fields(map[string]any{"slot": i, "post_type": postType, "error": err}))
			continue
		}
		item := model.ScheduledPost{
			NPCID:            npc.ID,
			Content:          res.Content,
			PostType:         postType,
			ScheduledFor:     at,
			GenerationPrompt: res.Prompt,
			AIModelUsed:      provider.Name(),
			Status:           model.QueuePending,
		}
		if withImages {
			if g.images.Roll(npc.ImageFrequency) {
				if img, ok := g.images.ForPost(ctx, provider, npc, res.Content, postType, ref); ok {
					item.ImageURL, item.ImagePrompt = img.URL, img.Prompt
				}
			} else {
				metrics.IncImage("skipped")
			}
		}
		if err := g.store.AddToQueue(ctx, &item); err != nil {
			metrics.IncGenerationFailure("queue")
			logging.Error("queue write failed", fields(map[string]any{"slot": i, "error": err}))
			continue
		}
		if err := g.store.IncrementNPCStat(ctx, npc.ID, model.StatPostsGenerated); err != nil {
			logging.Warn("increment posts counter failed", fields(map[string]any{"error": err}))
		}
		metrics.IncPostGenerated(string(provider.Name()))
		out = append(out, item)
		history = append([]string{res.Content}, history...)
	}
	if len(out) > 0 {
		if err := g.store.UpdateNPCActivity(ctx, npc.ID, g.now()); err != nil {
			logging.Warn("update activity failed", fields(map[string]any{"error": err}))
		}
	}
	logging.Info("posts generated", fields(map[string]any{"requested": count, "queued": len(out)}))
	return out
}
