package behavior

import (
	"context"
	"fmt"

	"ambitious/internal/logging"
	"ambitious/internal/model"
	"ambitious/internal/util"
)

// FleetStore adds the active NPC listing to Store.
type FleetStore interface {
	Store
	GetActiveNPCsForProcessing(ctx context.Context) ([]model.NPCProfile, error)
}

// FleetResult aggregates one sweep over all active NPCs.
type FleetResult struct {
	NPCs     int      `json:"npcs"`
	Likes    int      `json:"likes"`
	Comments int      `json:"comments"`
	Errors   []string `json:"errors"`
}

// Fleet sweeps every active NPC in turn.
type Fleet struct {
	store     FleetStore
	providers ProviderFactory
	opts      Options
}

func NewFleet(s FleetStore, providers ProviderFactory, opts Options) *Fleet {
	return &Fleet{store: s, providers: providers, opts: opts}
}

// ProcessAllActiveNPCs runs one engagement pass per active NPC. A failing or panicking NPC does not stop the sweep;
// its errors are prefixed with the persona name.
func (f *Fleet) ProcessAllActiveNPCs(ctx context.Context) (FleetResult, error) {
	var out FleetResult
	npcs, err := f.store.GetActiveNPCsForProcessing(ctx)
	if err != nil {
		return out, err
	}
	for i, npc := range npcs {
		if i > 0 {
			if err := util.Sleep(ctx, f.opts.NPCDelay); err != nil {
				out.Errors = append(out.Errors, err.Error())
				break
			}
		}
		out.NPCs++
		var res Result
		err := util.Guard(func() error {
			res = NewEngine(npc, f.store, f.providers, f.opts).ProcessEngagement(ctx)
			return nil
		})
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
		}
		out.Likes += res.Likes
		out.Comments += res.Comments
		for _, e := range res.Errors {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", npc.PersonaName, e))
		}
		logging.Info("npc engagement processed", map[string]any{
			"npc_id": npc.ID, "persona": npc.PersonaName, "likes": res.Likes, "comments": res.Comments, "errors": len(res.Errors),
		})
	}
	return out, nil
}
