package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ambitious/internal/model"
)

type npcRow struct {
	ID                  string         `db:"id"`
	UserID              string         `db:"user_id"`
	Username            string         `db:"username"`
	AvatarURL           string         `db:"avatar_url"`
	PersonaName         string         `db:"persona_name"`
	PersonaDescription  string         `db:"persona_description"`
	PersonaPrompt       string         `db:"persona_prompt"`
	AIModel             string         `db:"ai_model"`
	Temperature         float64        `db:"temperature"`
	Tone                string         `db:"tone"`
	Topics              string         `db:"topics"`
	PostTypes           string         `db:"post_types"`
	PostingTimes        sql.NullString `db:"posting_times"`
	EngagementSettings  string         `db:"engagement_settings"`
	GenerateImages      bool           `db:"generate_images"`
	ImageFrequency      string         `db:"image_frequency"`
	PreferredImageStyle string         `db:"preferred_image_style"`
	VisualPersona       sql.NullString `db:"visual_persona"`
	ReferenceImageURL   string         `db:"reference_image_url"`
	TotalPostsGenerated int            `db:"total_posts_generated"`
	TotalLikesGiven     int            `db:"total_likes_given"`
	TotalCommentsGiven  int            `db:"total_comments_given"`
	LastActivityAt      sql.NullInt64  `db:"last_activity_at"`
	IsActive            bool           `db:"is_active"`
	CreatedAt           int64          `db:"created_at"`
	UpdatedAt           int64          `db:"updated_at"`
}

const npcSelect = `SELECT n.id, n.user_id, COALESCE(p.username, '') AS username, COALESCE(p.avatar_url, '') AS avatar_url,
  n.persona_name, n.persona_description, n.persona_prompt, n.ai_model, n.temperature, n.tone, n.topics, n.post_types,
  n.posting_times, n.engagement_settings, n.generate_images, n.image_frequency, n.preferred_image_style,
  n.visual_persona, n.reference_image_url, n.total_posts_generated, n.total_likes_given, n.total_comments_given,
  n.last_activity_at, n.is_active, n.created_at, n.updated_at
FROM npc_profiles n LEFT JOIN profiles p ON p.id = n.user_id`

func (r npcRow) toModel() (model.NPCProfile, error) {
	p := model.NPCProfile{
		ID:                  r.ID,
		UserID:              r.UserID,
		Username:            r.Username,
		AvatarURL:           r.AvatarURL,
		PersonaName:         r.PersonaName,
		PersonaDescription:  r.PersonaDescription,
		PersonaPrompt:       r.PersonaPrompt,
		AIModel:             model.AIModel(r.AIModel),
		Temperature:         r.Temperature,
		Tone:                model.Tone(r.Tone),
		GenerateImages:      r.GenerateImages,
		ImageFrequency:      model.ImageFrequency(r.ImageFrequency),
		PreferredImageStyle: model.ImageStyle(r.PreferredImageStyle),
		ReferenceImageURL:   r.ReferenceImageURL,
		TotalPostsGenerated: r.TotalPostsGenerated,
		TotalLikesGiven:     r.TotalLikesGiven,
		TotalCommentsGiven:  r.TotalCommentsGiven,
		IsActive:            r.IsActive,
		CreatedAt:           fromMillis(r.CreatedAt),
		UpdatedAt:           fromMillis(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Topics), &p.Topics); err != nil {
		return p, fmt.Errorf("npc %s topics: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.PostTypes), &p.PostTypes); err != nil {
		return p, fmt.Errorf("npc %s post_types: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.EngagementSettings), &p.EngagementSettings); err != nil {
		return p, fmt.Errorf("npc %s engagement_settings: %w", r.ID, err)
	}
	if r.PostingTimes.Valid && r.PostingTimes.String != "" {
		var pt model.PostingTimes
		if err := json.Unmarshal([]byte(r.PostingTimes.String), &pt); err != nil {
			return p, fmt.Errorf("npc %s posting_times: %w", r.ID, err)
		}
		p.PostingTimes = &pt
	}
	if r.VisualPersona.Valid && r.VisualPersona.String != "" {
		var vp model.VisualPersona
		if err := json.Unmarshal([]byte(r.VisualPersona.String), &vp); err != nil {
			return p, fmt.Errorf("npc %s visual_persona: %w", r.ID, err)
		}
		p.VisualPersona = &vp
	}
	if r.LastActivityAt.Valid {
		t := fromMillis(r.LastActivityAt.Int64)
		p.LastActivityAt = &t
	}
	return p, nil
}

func jsonText(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func nullableJSON(v any, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	s, err := jsonText(v)
	return sql.NullString{String: s, Valid: err == nil}, err
}

func (d *DB) profileColumns(p model.NPCProfile) ([]any, error) {
	topics := p.Topics
	if topics == nil {
		topics = []string{}
	}
	topicsJSON, err := jsonText(topics)
	if err != nil {
		return nil, err
	}
	typesJSON, err := jsonText(p.PostTypes)
	if err != nil {
		return nil, err
	}
	settingsJSON, err := jsonText(p.EngagementSettings)
	if err != nil {
		return nil, err
	}
	pt, err := nullableJSON(p.PostingTimes, p.PostingTimes == nil)
	if err != nil {
		return nil, err
	}
	vp, err := nullableJSON(p.VisualPersona, p.VisualPersona == nil)
	if err != nil {
		return nil, err
	}
	return []any{
		p.PersonaName, p.PersonaDescription, p.PersonaPrompt, string(p.AIModel), p.Temperature, string(p.Tone),
		topicsJSON, typesJSON, pt, settingsJSON, p.GenerateImages, string(p.ImageFrequency),
		string(p.PreferredImageStyle), vp, p.ReferenceImageURL, p.IsActive,
	}, nil
}

// CreateNPC inserts a profile, assigning an id when none is set.
func (d *DB) CreateNPC(ctx context.Context, p *model.NPCProfile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := d.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cols, err := d.profileColumns(*p)
	if err != nil {
		return err
	}
	args := append([]any{p.ID, p.UserID}, cols...)
	args = append(args, toMillis(now), toMillis(now))
	_, err = d.conn.ExecContext(ctx, d.q(`INSERT INTO npc_profiles(
	  id, user_id, persona_name, persona_description, persona_prompt, ai_model, temperature, tone, topics, post_types,
	  posting_times, engagement_settings, generate_images, image_frequency, preferred_image_style, visual_persona,
	  reference_image_url, is_active, created_at, updated_at)
	VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`), args...)
	return err
}

// UpdateNPC rewrites the configuration columns. Lifetime counters are left alone.
func (d *DB) UpdateNPC(ctx context.Context, p *model.NPCProfile) error {
	now := d.now().UTC()
	cols, err := d.profileColumns(*p)
	if err != nil {
		return err
	}
	args := append(cols, toMillis(now), p.ID)
	res, err := d.conn.ExecContext(ctx, d.q(`UPDATE npc_profiles SET
	  persona_name=?, persona_description=?, persona_prompt=?, ai_model=?, temperature=?, tone=?, topics=?, post_types=?,
	  posting_times=?, engagement_settings=?, generate_images=?, image_frequency=?, preferred_image_style=?,
	  visual_persona=?, reference_image_url=?, is_active=?, updated_at=?
	WHERE id=?`), args...)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// DeleteNPC removes a profile along with its pending queue rows. The engagement log is kept.
func (d *DB) DeleteNPC(ctx context.Context, id string) error {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, d.q(`DELETE FROM npc_post_queue WHERE npc_id=? AND status=?`), id, string(model.QueuePending)); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, d.q(`DELETE FROM npc_profiles WHERE id=?`), id)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) GetNPCByID(ctx context.Context, id string) (model.NPCProfile, error) {
	var r npcRow
	if err := d.conn.GetContext(ctx, &r, d.q(npcSelect+` WHERE n.id=?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NPCProfile{}, ErrNotFound
		}
		return model.NPCProfile{}, err
	}
	return r.toModel()
}

// ListNPCs returns every profile, newest first.
func (d *DB) ListNPCs(ctx context.Context) ([]model.NPCProfile, error) {
	return d.selectNPCs(ctx, npcSelect+` ORDER BY n.created_at DESC`)
}

// GetActiveNPCsForProcessing returns active profiles, least recently active first.
func (d *DB) GetActiveNPCsForProcessing(ctx context.Context) ([]model.NPCProfile, error) {
	return d.selectNPCs(ctx, npcSelect+` WHERE n.is_active=? ORDER BY COALESCE(n.last_activity_at, 0) ASC, n.created_at ASC`, true)
}

func (d *DB) selectNPCs(ctx context.Context, query string, args ...any) ([]model.NPCProfile, error) {
	var rows []npcRow
	if err := d.conn.SelectContext(ctx, &rows, d.q(query), args...); err != nil {
		return nil, err
	}
	out := make([]model.NPCProfile, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// IncrementNPCStat bumps one lifetime counter by one.
func (d *DB) IncrementNPCStat(ctx context.Context, npcID string, stat model.Stat) error {
	switch stat {
	case model.StatPostsGenerated, model.StatLikesGiven, model.StatCommentsGiven:
	default:
		return fmt.Errorf("unknown npc stat %q", stat)
	}
	col := string(stat)
	res, err := d.conn.ExecContext(ctx, d.q(`UPDATE npc_profiles SET `+col+`=`+col+`+1 WHERE id=?`), npcID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// UpdateNPCActivity stamps last_activity_at.
func (d *DB) UpdateNPCActivity(ctx context.Context, npcID string, at time.Time) error {
	res, err := d.conn.ExecContext(ctx, d.q(`UPDATE npc_profiles SET last_activity_at=? WHERE id=?`), toMillis(at), npcID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (d *DB) SetVisualPersona(ctx context.Context, npcID string, vp model.VisualPersona) error {
	s, err := jsonText(vp)
	if err != nil {
		return err
	}
	res, err := d.conn.ExecContext(ctx, d.q(`UPDATE npc_profiles SET visual_persona=?, updated_at=? WHERE id=?`), s, toMillis(d.now()), npcID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (d *DB) SetReferenceImage(ctx context.Context, npcID, url string) error {
	res, err := d.conn.ExecContext(ctx, d.q(`UPDATE npc_profiles SET reference_image_url=?, updated_at=? WHERE id=?`), url, toMillis(d.now()), npcID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
