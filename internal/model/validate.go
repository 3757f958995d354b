package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidProfile  = errors.New("invalid npc profile")
	ErrInvalidSchedule = errors.New("invalid posting schedule")
)

// ValidPostType reports whether t is one of the platform post types.
func ValidPostType(t PostType) bool {
	for _, v := range AllPostTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ValidAIModel reports whether m names a supported text provider.
func ValidAIModel(m AIModel) bool {
	switch m {
	case AIModelOpenAI, AIModelClaude, AIModelXAI:
		return true
	}
	return false
}

// Validate checks a profile before it is written.
func (p NPCProfile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.PersonaName) == "" {
		return fmt.Errorf("%w: persona_name is required", ErrInvalidProfile)
	}
	if !ValidAIModel(p.AIModel) {
		return fmt.Errorf("%w: unknown ai_model %q", ErrInvalidProfile, p.AIModel)
	}
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("%w: temperature must be within [0,1]", ErrInvalidProfile)
	}
	if len(p.PostTypes) == 0 {
		return fmt.Errorf("%w: at least one post type is required", ErrInvalidProfile)
	}
	for _, t := range p.PostTypes {
		if !ValidPostType(t) {
			return fmt.Errorf("%w: unknown post type %q", ErrInvalidProfile, t)
		}
	}
	for _, t := range p.EngagementSettings.CommentOnTypes {
		if !ValidPostType(t) {
			return fmt.Errorf("%w: unknown comment_on_types entry %q", ErrInvalidProfile, t)
		}
	}
	if p.EngagementSettings.LikesPerDay < 0 || p.EngagementSettings.CommentsPerDay < 0 {
		return fmt.Errorf("%w: daily limits cannot be negative", ErrInvalidProfile)
	}
	switch p.ImageFrequency {
	case "", ImageAlways, ImageSometimes, ImageRarely:
	default:
		return fmt.Errorf("%w: unknown image_frequency %q", ErrInvalidProfile, p.ImageFrequency)
	}
	switch p.PreferredImageStyle {
	case "", ImageStylePhoto, ImageStyleIllustration, ImageStyleMixed:
	default:
		return fmt.Errorf("%w: unknown preferred_image_style %q", ErrInvalidProfile, p.PreferredImageStyle)
	}
	if p.PostingTimes != nil {
		if err := p.PostingTimes.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the schedule invariants.
func (pt PostingTimes) Validate() error {
	h := pt.ActiveHours
	if h.StartHour < 0 || h.StartHour > 23 || h.EndHour < 0 || h.EndHour > 23 {
		return fmt.Errorf("%w: active hours must be within 0-23", ErrInvalidSchedule)
	}
	switch pt.Mode {
	case ModePostsPerDay:
		if pt.PostsPerDay < 1 {
			return fmt.Errorf("%w: posts_per_day must be positive", ErrInvalidSchedule)
		}
	case ModePostsPerWeek:
		if pt.PostsPerWeek < 1 {
			return fmt.Errorf("%w: posts_per_week must be positive", ErrInvalidSchedule)
		}
	case ModeVariableInterval:
		if pt.MinIntervalHours < 1 || pt.MinIntervalHours >= pt.MaxIntervalHours {
			return fmt.Errorf("%w: need 1 <= min_interval_hours < max_interval_hours", ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSchedule, pt.Mode)
	}
	return nil
}
