package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ambitious/internal/model"
)

type engagementRow struct {
	ID               string `db:"id"`
	NPCID            string `db:"npc_id"`
	ActionType       string `db:"action_type"`
	TargetPostID     string `db:"target_post_id"`
	CommentContent   string `db:"comment_content"`
	CreatedCommentID string `db:"created_comment_id"`
	Status           string `db:"status"`
	ErrorMessage     string `db:"error_message"`
	CreatedAt        int64  `db:"created_at"`
}

func (r engagementRow) toModel() model.EngagementLogEntry {
	return model.EngagementLogEntry{
		ID:               r.ID,
		NPCID:            r.NPCID,
		ActionType:       model.ActionType(r.ActionType),
		TargetPostID:     r.TargetPostID,
		CommentContent:   r.CommentContent,
		CreatedCommentID: r.CreatedCommentID,
		Status:           model.ActionStatus(r.Status),
		ErrorMessage:     r.ErrorMessage,
		CreatedAt:        fromMillis(r.CreatedAt),
	}
}

// LogEngagement appends one audit row. Rows are never updated afterwards.
func (d *DB) LogEngagement(ctx context.Context, e *model.EngagementLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.now().UTC()
	}
	_, err := d.conn.ExecContext(ctx, d.q(`INSERT INTO npc_engagement_log(
	  id, npc_id, action_type, target_post_id, comment_content, created_comment_id, status, error_message, created_at)
	VALUES(?,?,?,?,?,?,?,?,?)`),
		e.ID, e.NPCID, string(e.ActionType), e.TargetPostID, e.CommentContent, e.CreatedCommentID, string(e.Status),
		e.ErrorMessage, toMillis(e.CreatedAt))
	return err
}

// GetTodayEngagementCount counts completed actions of one type in the UTC day containing now.
func (d *DB) GetTodayEngagementCount(ctx context.Context, npcID string, action model.ActionType, now time.Time) (int, error) {
	start, end := dayBounds(now)
	var n int
	err := d.conn.GetContext(ctx, &n, d.q(`SELECT COUNT(*) FROM npc_engagement_log
	WHERE npc_id=? AND action_type=? AND status=? AND created_at>=? AND created_at<?`),
		npcID, string(action), string(model.ActionCompleted), toMillis(start), toMillis(end))
	return n, err
}

// ListEngagementLog returns an NPC's latest audit rows, newest first.
func (d *DB) ListEngagementLog(ctx context.Context, npcID string, limit int) ([]model.EngagementLogEntry, error) {
	return d.selectEngagement(ctx, `SELECT id, npc_id, action_type, target_post_id, comment_content, created_comment_id,
	  status, error_message, created_at FROM npc_engagement_log WHERE npc_id=? ORDER BY created_at DESC LIMIT ?`, npcID, limit)
}

// EngagementLogSince returns an NPC's audit rows created at or after since, oldest first.
func (d *DB) EngagementLogSince(ctx context.Context, npcID string, since time.Time) ([]model.EngagementLogEntry, error) {
	return d.selectEngagement(ctx, `SELECT id, npc_id, action_type, target_post_id, comment_content, created_comment_id,
	  status, error_message, created_at FROM npc_engagement_log WHERE npc_id=? AND created_at>=? ORDER BY created_at ASC`,
		npcID, toMillis(since))
}

func (d *DB) selectEngagement(ctx context.Context, query string, args ...any) ([]model.EngagementLogEntry, error) {
	var rows []engagementRow
	if err := d.conn.SelectContext(ctx, &rows, d.q(query), args...); err != nil {
		return nil, err
	}
	out := make([]model.EngagementLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
