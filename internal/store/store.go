package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNotPending = errors.New("queue item is not pending")
)

// DB is the NPC data store. It owns the npc_* tables and reads and writes the
// shared social graph tables (profiles, posts, likes, comments).
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open connects with driver "sqlite" or "postgres" and applies the schema.
func Open(driver, dsn string) (*DB, error) {
	name := driver
	if driver == "postgres" {
		name = "pgx"
	}
	conn, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == "sqlite" {
		// every :memory: connection is its own database
		if dsn == ":memory:" {
			conn.SetMaxOpenConns(1)
		}
		if _, err := conn.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;`); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("sqlite pragmas: %w", err)
		}
	}
	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (d *DB) Close() error { return d.conn.Close() }

// Ping checks the connection is alive.
func (d *DB) Ping(ctx context.Context) error { return d.conn.PingContext(ctx) }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
	  id TEXT PRIMARY KEY,
	  username TEXT NOT NULL UNIQUE,
	  avatar_url TEXT NOT NULL DEFAULT '',
	  created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
	  id TEXT PRIMARY KEY,
	  user_id TEXT NOT NULL,
	  content TEXT NOT NULL,
	  post_type TEXT NOT NULL,
	  image_url TEXT NOT NULL DEFAULT '',
	  created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at)`,
	`CREATE TABLE IF NOT EXISTS likes (
	  id TEXT PRIMARY KEY,
	  post_id TEXT NOT NULL,
	  user_id TEXT NOT NULL,
	  created_at BIGINT NOT NULL,
	  UNIQUE(post_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
	  id TEXT PRIMARY KEY,
	  post_id TEXT NOT NULL,
	  user_id TEXT NOT NULL,
	  content TEXT NOT NULL,
	  created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_user ON comments(post_id, user_id)`,
	`CREATE TABLE IF NOT EXISTS npc_profiles (
	  id TEXT PRIMARY KEY,
	  user_id TEXT NOT NULL UNIQUE,
	  persona_name TEXT NOT NULL,
	  persona_description TEXT NOT NULL DEFAULT '',
	  persona_prompt TEXT NOT NULL DEFAULT '',
	  ai_model TEXT NOT NULL,
	  temperature DOUBLE PRECISION NOT NULL DEFAULT 0.8,
	  tone TEXT NOT NULL DEFAULT '',
	  topics TEXT NOT NULL DEFAULT '[]',
	  post_types TEXT NOT NULL DEFAULT '[]',
	  posting_times TEXT,
	  engagement_settings TEXT NOT NULL DEFAULT '{}',
	  generate_images BOOLEAN NOT NULL DEFAULT FALSE,
	  image_frequency TEXT NOT NULL DEFAULT '',
	  preferred_image_style TEXT NOT NULL DEFAULT '',
	  visual_persona TEXT,
	  reference_image_url TEXT NOT NULL DEFAULT '',
	  total_posts_generated INTEGER NOT NULL DEFAULT 0,
	  total_likes_given INTEGER NOT NULL DEFAULT 0,
	  total_comments_given INTEGER NOT NULL DEFAULT 0,
	  last_activity_at BIGINT,
	  is_active BOOLEAN NOT NULL DEFAULT TRUE,
	  created_at BIGINT NOT NULL,
	  updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS npc_post_queue (
	  id TEXT PRIMARY KEY,
	  npc_id TEXT NOT NULL,
	  content TEXT NOT NULL,
	  post_type TEXT NOT NULL,
	  scheduled_for BIGINT NOT NULL,
	  generation_prompt TEXT NOT NULL DEFAULT '',
	  ai_model_used TEXT NOT NULL DEFAULT '',
	  image_url TEXT NOT NULL DEFAULT '',
	  image_prompt TEXT NOT NULL DEFAULT '',
	  status TEXT NOT NULL,
	  error_message TEXT NOT NULL DEFAULT '',
	  published_post_id TEXT NOT NULL DEFAULT '',
	  published_at BIGINT,
	  created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queue_npc_status ON npc_post_queue(npc_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_queue_due ON npc_post_queue(status, scheduled_for)`,
	`CREATE TABLE IF NOT EXISTS npc_engagement_log (
	  id TEXT PRIMARY KEY,
	  npc_id TEXT NOT NULL,
	  action_type TEXT NOT NULL,
	  target_post_id TEXT NOT NULL,
	  comment_content TEXT NOT NULL DEFAULT '',
	  created_comment_id TEXT NOT NULL DEFAULT '',
	  status TEXT NOT NULL,
	  error_message TEXT NOT NULL DEFAULT '',
	  created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_engagement_npc_day ON npc_engagement_log(npc_id, action_type, created_at)`,
}

func (d *DB) migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := d.conn.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// q rewrites ? placeholders for the connected dialect.
func (d *DB) q(query string) string { return d.conn.Rebind(query) }

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func dayBounds(now time.Time) (time.Time, time.Time) {
	u := now.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
