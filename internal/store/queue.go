package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"ambitious/internal/model"
)

type queueRow struct {
	ID               string        `db:"id"`
	NPCID            string        `db:"npc_id"`
	Content          string        `db:"content"`
	PostType         string        `db:"post_type"`
	ScheduledFor     int64         `db:"scheduled_for"`
	GenerationPrompt string        `db:"generation_prompt"`
	AIModelUsed      string        `db:"ai_model_used"`
	ImageURL         string        `db:"image_url"`
	ImagePrompt      string        `db:"image_prompt"`
	Status           string        `db:"status"`
	ErrorMessage     string        `db:"error_message"`
	PublishedPostID  string        `db:"published_post_id"`
	PublishedAt      sql.NullInt64 `db:"published_at"`
	CreatedAt        int64         `db:"created_at"`
}

const queueSelect = `SELECT id, npc_id, content, post_type, scheduled_for, generation_prompt, ai_model_used, image_url,
  image_prompt, status, error_message, published_post_id, published_at, created_at FROM npc_post_queue`

func (r queueRow) toModel() model.ScheduledPost {
	sp := model.ScheduledPost{
		ID:               r.ID,
		NPCID:            r.NPCID,
		Content:          r.Content,
		PostType:         model.PostType(r.PostType),
		ScheduledFor:     fromMillis(r.ScheduledFor),
		GenerationPrompt: r.GenerationPrompt,
		AIModelUsed:      model.AIModel(r.AIModelUsed),
		ImageURL:         r.ImageURL,
		ImagePrompt:      r.ImagePrompt,
		Status:           model.QueueStatus(r.Status),
		ErrorMessage:     r.ErrorMessage,
		PublishedPostID:  r.PublishedPostID,
		CreatedAt:        fromMillis(r.CreatedAt),
	}
	if r.PublishedAt.Valid {
		t := fromMillis(r.PublishedAt.Int64)
		sp.PublishedAt = &t
	}
	return sp
}

// AddToQueue persists a generated post. Status defaults to pending.
func (d *DB) AddToQueue(ctx context.Context, item *model.ScheduledPost) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = model.QueuePending
	}
	item.CreatedAt = d.now().UTC()
	_, err := d.conn.ExecContext(ctx, d.q(`INSERT INTO npc_post_queue(
	  id, npc_id, content, post_type, scheduled_for, generation_prompt, ai_model_used, image_url, image_prompt, status, created_at)
	VALUES(?,?,?,?,?,?,?,?,?,?,?)`),
		item.ID, item.NPCID, item.Content, string(item.PostType), toMillis(item.ScheduledFor), item.GenerationPrompt,
		string(item.AIModelUsed), item.ImageURL, item.ImagePrompt, string(item.Status), toMillis(item.CreatedAt))
	return err
}

// GetQueueItems lists queue rows ordered by scheduled time.
func (d *DB) GetQueueItems(ctx context.Context, f model.QueueFilter) ([]model.ScheduledPost, error) {
	query := queueSelect + ` WHERE 1=1`
	var args []any
	if f.NPCID != "" {
		query += ` AND npc_id=?`
		args = append(args, f.NPCID)
	}
	if f.Status != "" {
		query += ` AND status=?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY scheduled_for ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return d.selectQueue(ctx, query, args...)
}

func (d *DB) GetQueueItem(ctx context.Context, id string) (model.ScheduledPost, error) {
	var r queueRow
	if err := d.conn.GetContext(ctx, &r, d.q(queueSelect+` WHERE id=?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ScheduledPost{}, ErrNotFound
		}
		return model.ScheduledPost{}, err
	}
	return r.toModel(), nil
}

// CountQueueItems counts one NPC's rows in the given status.
func (d *DB) CountQueueItems(ctx context.Context, npcID string, status model.QueueStatus) (int, error) {
	var n int
	err := d.conn.GetContext(ctx, &n, d.q(`SELECT COUNT(*) FROM npc_post_queue WHERE npc_id=? AND status=?`), npcID, string(status))
	return n, err
}

// GetRecentNPCPosts returns the bodies of the NPC's latest generated posts, newest first.
// Cancelled rows are skipped; they were rejected content.
func (d *DB) GetRecentNPCPosts(ctx context.Context, npcID string, limit int) ([]string, error) {
	var out []string
	err := d.conn.SelectContext(ctx, &out, d.q(`SELECT content FROM npc_post_queue
	WHERE npc_id=? AND status<>? ORDER BY created_at DESC, scheduled_for DESC LIMIT ?`), npcID, string(model.QueueCancelled), limit)
	return out, err
}

// DuePendingItems returns pending rows scheduled at or before now, oldest first.
func (d *DB) DuePendingItems(ctx context.Context, now time.Time, limit int) ([]model.ScheduledPost, error) {
	return d.selectQueue(ctx, queueSelect+` WHERE status=? AND scheduled_for<=? ORDER BY scheduled_for ASC LIMIT ?`,
		string(model.QueuePending), toMillis(now), limit)
}

// PublishQueueItem claims a pending row and writes its live post in one transaction.
// A row another run already claimed yields ErrNotPending and no post.
func (d *DB) PublishQueueItem(ctx context.Context, queueID string, p *model.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = d.now().UTC()
	}
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, d.q(`UPDATE npc_post_queue SET status=?, published_post_id=?, published_at=?, error_message=''
	WHERE id=? AND status=?`), string(model.QueuePublished), p.ID, toMillis(p.CreatedAt), queueID, string(model.QueuePending))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotPending
	}
	if err := d.insertPost(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkFailed moves a pending row to failed with the reason.
func (d *DB) MarkFailed(ctx context.Context, id, reason string) error {
	res, err := d.conn.ExecContext(ctx, d.q(`UPDATE npc_post_queue SET status=?, error_message=? WHERE id=? AND status=?`),
		string(model.QueueFailed), reason, id, string(model.QueuePending))
	if err != nil {
		return err
	}
	return expectRow(res)
}

// CancelQueueItem cancels a pending row. Rows in any other state are left untouched.
func (d *DB) CancelQueueItem(ctx context.Context, id string) error {
	item, err := d.GetQueueItem(ctx, id)
	if err != nil {
		return err
	}
	if item.Status != model.QueuePending {
		return ErrNotPending
	}
	res, err := d.conn.ExecContext(ctx, d.q(`UPDATE npc_post_queue SET status=? WHERE id=? AND status=?`),
		string(model.QueueCancelled), id, string(model.QueuePending))
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return ErrNotPending
	}
	return nil
}

func (d *DB) selectQueue(ctx context.Context, query string, args ...any) ([]model.ScheduledPost, error) {
	var rows []queueRow
	if err := d.conn.SelectContext(ctx, &rows, d.q(query), args...); err != nil {
		return nil, err
	}
	out := make([]model.ScheduledPost, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
