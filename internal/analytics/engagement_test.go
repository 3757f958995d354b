package analytics

import (
	"testing"
	"time"

	"ambitious/internal/model"
)

func TestDailyEngagement(t *testing.T) {
	d1 := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	d2 := d1.Add(time.Hour)
	got := DailyEngagement([]model.EngagementLogEntry{
		{ActionType: model.ActionComment, Status: model.ActionCompleted, CreatedAt: d2},
		{ActionType: model.ActionLike, Status: model.ActionCompleted, CreatedAt: d1},
		{ActionType: model.ActionLike, Status: model.ActionFailed, CreatedAt: d1},
		{ActionType: model.ActionLike, Status: model.ActionCompleted, CreatedAt: d1.Add(-time.Hour)},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got))
	}
	if got[0].Likes != 2 || got[0].FailedLikes != 1 || got[0].Comments != 0 {
		t.Fatalf("unexpected first day: %+v", got[0])
	}
	if got[1].Day.Day() != 2 || got[1].Comments != 1 {
		t.Fatalf("unexpected second day: %+v", got[1])
	}
}
