package analytics

import (
	"sort"
	"time"

	"ambitious/internal/model"
)

// DayCounts is one UTC day of an NPC's engagement.
type DayCounts struct {
	Day            time.Time `json:"day"`
	Likes          int       `json:"likes"`
	Comments       int       `json:"comments"`
	FailedLikes    int       `json:"failed_likes"`
	FailedComments int       `json:"failed_comments"`
}

// DailyEngagement buckets log entries per UTC day, oldest day first.
func DailyEngagement(entries []model.EngagementLogEntry) []DayCounts {
	buckets := make(map[time.Time]*DayCounts)
	for _, e := range entries {
		u := e.CreatedAt.UTC()
		key := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := buckets[key]
		if !ok {
			b = &DayCounts{Day: key}
			buckets[key] = b
		}
		failed := e.Status == model.ActionFailed
		switch {
		case e.ActionType == model.ActionLike && failed:
			b.FailedLikes++
		case e.ActionType == model.ActionLike:
			b.Likes++
		case e.ActionType == model.ActionComment && failed:
			b.FailedComments++
		case e.ActionType == model.ActionComment:
			b.Comments++
		}
	}
	out := make([]DayCounts, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
