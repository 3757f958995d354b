package model

import (
	"errors"
	"testing"
)

func validProfile() NPCProfile {
	return NPCProfile{
		UserID:      "u1",
		PersonaName: "Maya",
		AIModel:     AIModelOpenAI,
		Temperature: 0.8,
		PostTypes:   []PostType{PostTypeWin},
		PostingTimes: &PostingTimes{
			Mode:        ModePostsPerDay,
			PostsPerDay: 3,
			ActiveHours: ActiveHours{StartHour: 8, EndHour: 22},
		},
	}
}

func TestProfileValidate(t *testing.T) {
	p := validProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid profile, got %v", err)
	}

	p.PostTypes = nil
	if err := p.Validate(); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected empty post types rejected, got %v", err)
	}

	p = validProfile()
	p.AIModel = "gemini"
	if err := p.Validate(); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected unknown model rejected, got %v", err)
	}

	p = validProfile()
	p.Temperature = 1.5
	if err := p.Validate(); err == nil {
		t.Fatalf("expected temperature out of range rejected")
	}
}

func TestPostingTimesValidate(t *testing.T) {
	vi := PostingTimes{Mode: ModeVariableInterval, MinIntervalHours: 6, MaxIntervalHours: 6}
	if err := vi.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected min == max rejected, got %v", err)
	}
	vi.MaxIntervalHours = 9
	if err := vi.Validate(); err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}
	wrap := PostingTimes{Mode: ModePostsPerWeek, PostsPerWeek: 4, ActiveHours: ActiveHours{StartHour: 22, EndHour: 6}}
	if err := wrap.Validate(); err != nil {
		t.Fatalf("wrapping hours should be valid, got %v", err)
	}
	bad := PostingTimes{Mode: ModePostsPerDay, PostsPerDay: 1, ActiveHours: ActiveHours{StartHour: 24}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected hour 24 rejected")
	}
}
