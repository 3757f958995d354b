// Package behavior drives NPC likes and comments on other members' posts.
package behavior

import (
	"context"
	"fmt"
	"time"

	"ambitious/internal/ai"
	"ambitious/internal/logging"
	"ambitious/internal/metrics"
	"ambitious/internal/model"
	"ambitious/internal/util"
)

// Store is the slice of the data store engagement needs.
type Store interface {
	GetTodayEngagementCount(ctx context.Context, npcID string, action model.ActionType, now time.Time) (int, error)
	FindEngagementTargets(ctx context.Context, q model.TargetQuery) ([]model.EngagementTarget, error)
	HasLiked(ctx context.Context, postID, userID string) (bool, error)
	HasCommented(ctx context.Context, postID, userID string) (bool, error)
	CreateLike(ctx context.Context, postID, userID string) error
	CreateComment(ctx context.Context, postID, userID, content string) (string, error)
	LogEngagement(ctx context.Context, e *model.EngagementLogEntry) error
	IncrementNPCStat(ctx context.Context, npcID string, stat model.Stat) error
	UpdateNPCActivity(ctx context.Context, npcID string, at time.Time) error
}

type ProviderFactory interface {
	New(m model.AIModel, temperature float64) (ai.Provider, error)
}

type Options struct {
	// CommentDelay separates comment attempts.
	CommentDelay time.Duration
	// NPCDelay separates NPCs in a fleet sweep.
	NPCDelay time.Duration
}

// overFetch is how many candidates are read per remaining action, to survive the already-engaged filter.
const overFetch = 3

// Result is the outcome of one engagement pass.
type Result struct {
	Likes    int      `json:"likes"`
	Comments int      `json:"comments"`
	Errors   []string `json:"errors"`
}

// Engine runs engagement for one NPC.
type Engine struct {
	npc       model.NPCProfile
	store     Store
	providers ProviderFactory
	opts      Options
	now       func() time.Time
}

func NewEngine(npc model.NPCProfile, s Store, providers ProviderFactory, opts Options) *Engine {
	return &Engine{npc: npc, store: s, providers: providers, opts: opts, now: time.Now}
}

func (e *Engine) fields(extra map[string]any) map[string]any {
	f := map[string]any{"npc_id": e.npc.ID, "persona": e.npc.PersonaName}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

// ProcessEngagement runs the like flow then the comment flow. Inactive NPCs do nothing.
func (e *Engine) ProcessEngagement(ctx context.Context) Result {
	var res Result
	if !e.npc.IsActive {
		return res
	}
	s := e.npc.EngagementSettings
	if s.AutoLike {
		n, err := e.likeFlow(ctx)
		res.Likes = n
		if err != nil {
			res.Errors = append(res.Errors, "like: "+err.Error())
		}
	}
	if s.AutoComment {
		n, errs := e.commentFlow(ctx)
		res.Comments = n
		res.Errors = append(res.Errors, errs...)
	}
	if res.Likes+res.Comments > 0 {
		if err := e.store.UpdateNPCActivity(ctx, e.npc.ID, e.now()); err != nil {
			logging.Warn("update activity failed", e.fields(map[string]any{"error": err}))
		}
	}
	return res
}

// remaining is today's headroom for action against limit.
func (e *Engine) remaining(ctx context.Context, action model.ActionType, limit int) (int, error) {
	done, err := e.store.GetTodayEngagementCount(ctx, e.npc.ID, action, e.now())
	if err != nil {
		return 0, err
	}
	return limit - done, nil
}

func (e *Engine) candidates(ctx context.Context, remaining int) ([]model.EngagementTarget, error) {
	return e.store.FindEngagementTargets(ctx, model.TargetQuery{
		ExcludeUserID: e.npc.UserID,
		PostTypes:     e.npc.EngagementSettings.CommentOnTypes,
		Limit:         remaining * overFetch,
	})
}

func (e *Engine) logAction(ctx context.Context, entry model.EngagementLogEntry) {
	entry.NPCID = e.npc.ID
	metrics.IncEngagement(string(entry.ActionType), string(entry.Status))
	if err := e.store.LogEngagement(ctx, &entry); err != nil {
		logging.Error("engagement log write failed", e.fields(map[string]any{"action": entry.ActionType, "post_id": entry.TargetPostID, "error": err}))
	}
}

func (e *Engine) likeFlow(ctx context.Context) (int, error) {
	remaining, err := e.remaining(ctx, model.ActionLike, e.npc.EngagementSettings.LikesPerDay)
	if err != nil || remaining <= 0 {
		return 0, err
	}
	targets, err := e.candidates(ctx, remaining)
	if err != nil {
		return 0, err
	}
	liked := 0
	for _, t := range targets {
		if liked >= remaining {
			break
		}
		if err := ctx.Err(); err != nil {
			return liked, err
		}
		already, err := e.store.HasLiked(ctx, t.PostID, e.npc.UserID)
		if err != nil {
			return liked, err
		}
		if already {
			continue
		}
		if err := e.store.CreateLike(ctx, t.PostID, e.npc.UserID); err != nil {
			logging.Warn("like failed", e.fields(map[string]any{"post_id": t.PostID, "error": err}))
			e.logAction(ctx, model.EngagementLogEntry{ActionType: model.ActionLike, TargetPostID: t.PostID, Status: model.ActionFailed, ErrorMessage: err.Error()})
			continue
		}
		e.logAction(ctx, model.EngagementLogEntry{ActionType: model.ActionLike, TargetPostID: t.PostID, Status: model.ActionCompleted})
		if err := e.store.IncrementNPCStat(ctx, e.npc.ID, model.StatLikesGiven); err != nil {
			logging.Warn("increment likes counter failed", e.fields(map[string]any{"error": err}))
		}
		liked++
	}
	return liked, nil
}

func (e *Engine) commentFlow(ctx context.Context) (int, []string) {
	remaining, err := e.remaining(ctx, model.ActionComment, e.npc.EngagementSettings.CommentsPerDay)
	if err != nil {
		return 0, []string{"comment: " + err.Error()}
	}
	if remaining <= 0 {
		return 0, nil
	}
	targets, err := e.candidates(ctx, remaining)
	if err != nil {
		return 0, []string{"comment: " + err.Error()}
	}
	provider, err := e.providers.New(e.npc.AIModel, e.npc.Temperature)
	if err != nil {
		return 0, []string{"comment: " + err.Error()}
	}
	persona := ai.PersonaOf(e.npc)
	style := e.npc.EngagementSettings.EngagementStyle
	var errs []string
	commented, attempts := 0, 0
	for _, t := range targets {
		if commented >= remaining {
			break
		}
		already, err := e.store.HasCommented(ctx, t.PostID, e.npc.UserID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("comment %s: %v", t.PostID, err))
			continue
		}
		if already {
			continue
		}
		if attempts > 0 {
			if err := util.Sleep(ctx, e.opts.CommentDelay); err != nil {
				errs = append(errs, "comment: "+err.Error())
				break
			}
		}
		attempts++
		out, err := provider.GenerateComment(ctx, ai.CommentRequest{
			Persona:        persona,
			Style:          style,
			PostContent:    t.PostContent,
			PostType:       t.PostType,
			AuthorUsername: t.AuthorUsername,
		})
		if err != nil {
			e.commentFailed(ctx, t.PostID, "", err, &errs)
			continue
		}
		id, err := e.store.CreateComment(ctx, t.PostID, e.npc.UserID, out.Content)
		if err != nil {
			e.commentFailed(ctx, t.PostID, out.Content, err, &errs)
			continue
		}
		e.logAction(ctx, model.EngagementLogEntry{
			ActionType: model.ActionComment, TargetPostID: t.PostID, CommentContent: out.Content,
			CreatedCommentID: id, Status: model.ActionCompleted,
		})
		if err := e.store.IncrementNPCStat(ctx, e.npc.ID, model.StatCommentsGiven); err != nil {
			logging.Warn("increment comments counter failed", e.fields(map[string]any{"error": err}))
		}
		commented++
	}
	return commented, errs
}

func (e *Engine) commentFailed(ctx context.Context, postID, content string, err error, errs *[]string) {
	logging.Warn("comment failed", e.fields(map[string]any{"post_id": postID, "error": err}))
	e.logAction(ctx, model.EngagementLogEntry{
		ActionType: model.ActionComment, TargetPostID: postID, CommentContent: content,
		Status: model.ActionFailed, ErrorMessage: err.Error(),
	})
	*errs = append(*errs, fmt.Sprintf("comment %s: %v", postID, err))
}
