package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ambitious/internal/logging"
	"ambitious/internal/metrics"
	"ambitious/internal/model"
	"ambitious/internal/store"
)

// PublishStore is what the publisher reads and writes.
type PublishStore interface {
	DuePendingItems(ctx context.Context, now time.Time, limit int) ([]model.ScheduledPost, error)
	GetNPCByID(ctx context.Context, id string) (model.NPCProfile, error)
	PublishQueueItem(ctx context.Context, queueID string, p *model.Post) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Publisher promotes due queue rows into live posts.
type Publisher struct {
	store PublishStore
}

func NewPublisher(s PublishStore) *Publisher { return &Publisher{store: s} }

type PublishResult struct {
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// PublishDue publishes pending rows scheduled at or before now, oldest first.
// Rows of paused NPCs stay pending until the NPC is active again. Each row is claimed atomically
// with its post insert, so overlapping runs never publish a row twice.
func (p *Publisher) PublishDue(ctx context.Context, now time.Time, limit int) (PublishResult, error) {
	var res PublishResult
	if limit <= 0 {
		limit = 50
	}
	due, err := p.store.DuePendingItems(ctx, now, limit)
	if err != nil {
		return res, err
	}
	for _, item := range due {
		npc, err := p.store.GetNPCByID(ctx, item.NPCID)
		if errors.Is(err, store.ErrNotFound) {
			p.fail(ctx, &res, item, "npc not found")
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", item.ID, err))
			continue
		}
		if !npc.IsActive {
			res.Skipped++
			continue
		}
		post := model.Post{UserID: npc.UserID, Content: item.Content, PostType: item.PostType, ImageURL: item.ImageURL, CreatedAt: now}
		err = p.store.PublishQueueItem(ctx, item.ID, &post)
		if errors.Is(err, store.ErrNotPending) {
			// claimed by a concurrent run
			res.Skipped++
			continue
		}
		if err != nil {
			p.fail(ctx, &res, item, err.Error())
			continue
		}
		metrics.IncPublish("published")
		res.Published++
	}
	return res, nil
}

func (p *Publisher) fail(ctx context.Context, res *PublishResult, item model.ScheduledPost, reason string) {
	metrics.IncPublish("failed")
	res.Failed++
	res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", item.ID, reason))
	logging.Warn("publish failed", map[string]any{"queue_id": item.ID, "npc_id": item.NPCID, "error": reason})
	if err := p.store.MarkFailed(ctx, item.ID, reason); err != nil {
		logging.Error("mark failed failed", map[string]any{"queue_id": item.ID, "error": err})
	}
}
