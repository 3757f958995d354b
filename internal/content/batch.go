package content

import (
	"context"
	"fmt"

	"ambitious/internal/logging"
	"ambitious/internal/model"
	"ambitious/internal/schedule"
	"ambitious/internal/util"
)

// BatchResult aggregates a fleet-wide generation run.
type BatchResult struct {
	NPCs      int      `json:"npcs"`
	Generated int      `json:"generated"`
	Errors    []string `json:"errors"`
}

// GenerateBatchForActiveNPCs generates postsPerNPC posts for every active NPC.
// postsPerNPC <= 0 sizes each batch from the NPC's own schedule.
func (g *Generator) GenerateBatchForActiveNPCs(ctx context.Context, postsPerNPC int) (BatchResult, error) {
	return g.forEachActive(ctx, func(npc model.NPCProfile) (int, error) {
		n := postsPerNPC
		if n <= 0 {
			n = batchSize(npc)
		}
		return n, nil
	})
}

// RefillQueuesIfNeeded tops every active NPC's pending queue up to minQueueSize.
func (g *Generator) RefillQueuesIfNeeded(ctx context.Context, minQueueSize int) (BatchResult, error) {
	return g.forEachActive(ctx, func(npc model.NPCProfile) (int, error) {
		pending, err := g.store.CountQueueItems(ctx, npc.ID, model.QueuePending)
		if err != nil {
			return 0, err
		}
		if pending >= minQueueSize {
			return 0, nil
		}
		return minQueueSize - pending, nil
	})
}

// forEachActive runs one isolated generation per active NPC; need decides how many posts each gets.
func (g *Generator) forEachActive(ctx context.Context, need func(model.NPCProfile) (int, error)) (BatchResult, error) {
	var res BatchResult
	npcs, err := g.store.GetActiveNPCsForProcessing(ctx)
	if err != nil {
		return res, err
	}
	for i, npc := range npcs {
		if i > 0 {
			if err := util.Sleep(ctx, g.opts.NPCDelay); err != nil {
				res.Errors = append(res.Errors, err.Error())
				break
			}
		}
		res.NPCs++
		err := util.Guard(func() error {
			n, err := need(npc)
			if err != nil || n <= 0 {
				return err
			}
			provider, err := g.providers.New(npc.AIModel, npc.Temperature)
			if err != nil {
				return err
			}
			res.Generated += len(g.generate(ctx, npc, provider, n))
			return nil
		})
		if err != nil {
			logging.Error("npc generation failed", map[string]any{"npc_id": npc.ID, "persona": npc.PersonaName, "error": err})
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", npc.PersonaName, err))
		}
	}
	return res, nil
}

func batchSize(npc model.NPCProfile) int {
	if npc.PostingTimes == nil || npc.PostingTimes.Mode == "" {
		return 3
	}
	if n := schedule.PostsToGenerate(*npc.PostingTimes); n > 0 {
		return n
	}
	return 1
}
