// Package jobs runs the periodic engagement sweep, queue refill and publishing.
package jobs

import (
	"context"
	"time"

	"ambitious/internal/behavior"
	"ambitious/internal/cmdlog"
	"ambitious/internal/content"
	"ambitious/internal/logging"
	"ambitious/internal/notify"
)

type Sweeper interface {
	ProcessAllActiveNPCs(ctx context.Context) (behavior.FleetResult, error)
}

type Refiller interface {
	RefillQueuesIfNeeded(ctx context.Context, minQueueSize int) (content.BatchResult, error)
}

type Publisher interface {
	PublishDue(ctx context.Context, now time.Time, limit int) (content.PublishResult, error)
}

// Deps are the operations the jobs trigger. Nil members disable their job.
type Deps struct {
	Sweeper   Sweeper
	Refiller  Refiller
	Publisher Publisher
	Notifier  notify.Notifier
	Now       func() time.Time
}

func (d Deps) notifier() notify.Notifier {
	if d.Notifier == nil {
		return notify.Nop{}
	}
	return d.Notifier
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now()
}

func (d Deps) send(ctx context.Context, text string) {
	if err := d.notifier().Notify(ctx, text); err != nil {
		logging.Warn("notify failed", map[string]any{"error": err})
	}
}

// RunEngagementOnce sweeps every active NPC once.
func RunEngagementOnce(ctx context.Context, d Deps) (behavior.FleetResult, error) {
	var res behavior.FleetResult
	err := cmdlog.Run("engage", func() error {
		var err error
		res, err = d.Sweeper.ProcessAllActiveNPCs(ctx)
		return err
	})
	if err != nil {
		d.send(ctx, "engagement sweep failed: "+err.Error())
		return res, err
	}
	if res.Likes+res.Comments > 0 || len(res.Errors) > 0 {
		d.send(ctx, notify.Summary("engagement sweep",
			map[string]int{"npcs": res.NPCs, "likes": res.Likes, "comments": res.Comments},
			[]string{"npcs", "likes", "comments"}, res.Errors))
	}
	return res, nil
}

// RunRefillOnce tops queues up to minQueueSize.
func RunRefillOnce(ctx context.Context, d Deps, minQueueSize int) (content.BatchResult, error) {
	var res content.BatchResult
	err := cmdlog.Run("refill", func() error {
		var err error
		res, err = d.Refiller.RefillQueuesIfNeeded(ctx, minQueueSize)
		return err
	})
	if err != nil {
		d.send(ctx, "queue refill failed: "+err.Error())
		return res, err
	}
	if res.Generated > 0 || len(res.Errors) > 0 {
		d.send(ctx, notify.Summary("queue refill",
			map[string]int{"npcs": res.NPCs, "generated": res.Generated},
			[]string{"npcs", "generated"}, res.Errors))
	}
	return res, nil
}

// RunPublishOnce publishes due queue rows. Only failures are reported; it runs too often for a summary each time.
func RunPublishOnce(ctx context.Context, d Deps, limit int) (content.PublishResult, error) {
	var res content.PublishResult
	err := cmdlog.Run("publish", func() error {
		var err error
		res, err = d.Publisher.PublishDue(ctx, d.now(), limit)
		return err
	})
	if err != nil {
		d.send(ctx, "publish failed: "+err.Error())
		return res, err
	}
	if res.Failed > 0 {
		d.send(ctx, notify.Summary("publish",
			map[string]int{"published": res.Published, "failed": res.Failed},
			[]string{"published", "failed"}, res.Errors))
	}
	return res, nil
}
