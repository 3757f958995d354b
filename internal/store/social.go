package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ambitious/internal/model"
)

// CreateUser registers a platform profile and returns its id. NPC profiles hang off one of these.
func (d *DB) CreateUser(ctx context.Context, username, avatarURL string) (string, error) {
	id := uuid.NewString()
	_, err := d.conn.ExecContext(ctx, d.q(`INSERT INTO profiles(id, username, avatar_url, created_at) VALUES(?,?,?,?)`),
		id, username, avatarURL, toMillis(d.now()))
	return id, err
}

// UserExists reports whether a platform profile with id exists.
func (d *DB) UserExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := d.conn.GetContext(ctx, &n, d.q(`SELECT COUNT(*) FROM profiles WHERE id=?`), id)
	return n > 0, err
}

// CreatePost writes a live post. ID and CreatedAt are assigned when zero.
func (d *DB) CreatePost(ctx context.Context, p *model.Post) error {
	return d.insertPost(ctx, d.conn, p)
}

func (d *DB) insertPost(ctx context.Context, ex sqlx.ExecerContext, p *model.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = d.now().UTC()
	}
	_, err := ex.ExecContext(ctx, d.q(`INSERT INTO posts(id, user_id, content, post_type, image_url, created_at) VALUES(?,?,?,?,?,?)`),
		p.ID, p.UserID, p.Content, string(p.PostType), p.ImageURL, toMillis(p.CreatedAt))
	return err
}

func (d *DB) GetPost(ctx context.Context, id string) (model.Post, error) {
	var r struct {
		ID        string `db:"id"`
		UserID    string `db:"user_id"`
		Content   string `db:"content"`
		PostType  string `db:"post_type"`
		ImageURL  string `db:"image_url"`
		CreatedAt int64  `db:"created_at"`
	}
	if err := d.conn.GetContext(ctx, &r, d.q(`SELECT id, user_id, content, post_type, image_url, created_at FROM posts WHERE id=?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, ErrNotFound
		}
		return model.Post{}, err
	}
	return model.Post{ID: r.ID, UserID: r.UserID, Content: r.Content, PostType: model.PostType(r.PostType),
		ImageURL: r.ImageURL, CreatedAt: fromMillis(r.CreatedAt)}, nil
}

type targetRow struct {
	PostID         string `db:"post_id"`
	PostContent    string `db:"content"`
	PostType       string `db:"post_type"`
	AuthorUsername string `db:"username"`
	AuthorID       string `db:"user_id"`
}

// FindEngagementTargets returns recent posts not authored by the excluded user, newest first.
// An empty PostTypes list matches every type.
func (d *DB) FindEngagementTargets(ctx context.Context, tq model.TargetQuery) ([]model.EngagementTarget, error) {
	query := `SELECT p.id AS post_id, p.content, p.post_type, p.user_id, COALESCE(u.username, '') AS username
	FROM posts p LEFT JOIN profiles u ON u.id = p.user_id
	WHERE p.user_id <> ?`
	args := []any{tq.ExcludeUserID}
	if len(tq.PostTypes) > 0 {
		types := make([]string, len(tq.PostTypes))
		for i, t := range tq.PostTypes {
			types[i] = string(t)
		}
		query += ` AND p.post_type IN (?)`
		args = append(args, types)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`
	limit := tq.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	var rows []targetRow
	if err := d.conn.SelectContext(ctx, &rows, d.q(query), args...); err != nil {
		return nil, err
	}
	out := make([]model.EngagementTarget, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.EngagementTarget{
			PostID:         r.PostID,
			PostContent:    r.PostContent,
			PostType:       model.PostType(r.PostType),
			AuthorUsername: r.AuthorUsername,
			AuthorID:       r.AuthorID,
		})
	}
	return out, nil
}

// HasLiked reports whether userID already likes postID.
func (d *DB) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	var n int
	err := d.conn.GetContext(ctx, &n, d.q(`SELECT COUNT(*) FROM likes WHERE post_id=? AND user_id=?`), postID, userID)
	return n > 0, err
}

// HasCommented reports whether userID already commented on postID.
func (d *DB) HasCommented(ctx context.Context, postID, userID string) (bool, error) {
	var n int
	err := d.conn.GetContext(ctx, &n, d.q(`SELECT COUNT(*) FROM comments WHERE post_id=? AND user_id=?`), postID, userID)
	return n > 0, err
}

// CreateLike inserts a like. The (post, user) pair is unique; a duplicate returns the driver error.
func (d *DB) CreateLike(ctx context.Context, postID, userID string) error {
	_, err := d.conn.ExecContext(ctx, d.q(`INSERT INTO likes(id, post_id, user_id, created_at) VALUES(?,?,?,?)`),
		uuid.NewString(), postID, userID, toMillis(d.now()))
	return err
}

// CreateComment inserts a comment and returns its id.
func (d *DB) CreateComment(ctx context.Context, postID, userID, content string) (string, error) {
	id := uuid.NewString()
	_, err := d.conn.ExecContext(ctx, d.q(`INSERT INTO comments(id, post_id, user_id, content, created_at) VALUES(?,?,?,?,?)`),
		id, postID, userID, content, toMillis(d.now()))
	return id, err
}
