package schedule

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"ambitious/internal/model"
)

func seeded(seed int64) *Calculator { return New(rand.New(rand.NewSource(seed))) }

func TestNextPostTimePerDayStaysInWindow(t *testing.T) {
	c := seeded(1)
	pt := model.PostingTimes{Mode: model.ModePostsPerDay, PostsPerDay: 3, ActiveHours: model.ActiveHours{StartHour: 8, EndHour: 22}, RandomizeMinutes: true}
	from := time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		got := c.NextPostTime(pt, from)
		if !got.After(from) {
			t.Fatalf("expected %s after %s", got, from)
		}
		if got.Second() != 0 || got.Nanosecond() != 0 {
			t.Fatalf("seconds not zeroed: %s", got)
		}
		fellBack := !got.Before(from.Add(time.Hour-59*time.Minute)) && !got.After(from.Add(5*time.Hour))
		if !InActiveHours(got.Hour(), pt.ActiveHours) && !fellBack {
			t.Fatalf("hour %d outside window and not a fallback", got.Hour())
		}
	}
}

func TestNextPostTimeLateInDayFallsBack(t *testing.T) {
	c := seeded(2)
	pt := model.PostingTimes{Mode: model.ModePostsPerDay, PostsPerDay: 1, ActiveHours: model.ActiveHours{StartHour: 8, EndHour: 10}}
	from := time.Date(2025, 3, 10, 23, 15, 0, 0, time.UTC)
	got := c.NextPostTime(pt, from)
	if got.Before(from.Add(45*time.Minute)) || got.After(from.Add(4*time.Hour)) {
		t.Fatalf("expected 1-4h fallback, got %s", got)
	}
	if got.Minute() != 0 {
		t.Fatalf("minutes should be forced to 0, got %d", got.Minute())
	}
}

func TestWrappedWindow(t *testing.T) {
	ah := model.ActiveHours{StartHour: 22, EndHour: 6}
	if ActiveSpan(ah) != 8 {
		t.Fatalf("span expected 8, got %d", ActiveSpan(ah))
	}
	for _, h := range []int{22, 23, 0, 3, 5} {
		if !InActiveHours(h, ah) {
			t.Fatalf("hour %d should be active", h)
		}
	}
	for _, h := range []int{6, 12, 21} {
		if InActiveHours(h, ah) {
			t.Fatalf("hour %d should be inactive", h)
		}
	}
	c := seeded(3)
	pt := model.PostingTimes{Mode: model.ModePostsPerWeek, PostsPerWeek: 5, ActiveHours: ah}
	from := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, got := range c.MultiplePostTimes(pt, 5, from) {
		if !InActiveHours(got.Hour(), ah) {
			t.Fatalf("weekly slot hour %d outside wrapped window", got.Hour())
		}
	}
}

func TestMultiplePostTimesCountSortedAfterFrom(t *testing.T) {
	from := time.Date(2025, 6, 1, 14, 20, 0, 0, time.UTC)
	cases := []model.PostingTimes{
		{Mode: model.ModePostsPerDay, PostsPerDay: 4, ActiveHours: model.ActiveHours{StartHour: 9, EndHour: 21}, RandomizeMinutes: true},
		{Mode: model.ModePostsPerWeek, PostsPerWeek: 10, ActiveHours: model.ActiveHours{StartHour: 7, EndHour: 23}},
		{Mode: model.ModeVariableInterval, MinIntervalHours: 2, MaxIntervalHours: 6, ActiveHours: model.ActiveHours{StartHour: 8, EndHour: 20}, RandomizeMinutes: true},
		{Mode: "bogus", ActiveHours: model.ActiveHours{StartHour: 0, EndHour: 0}},
	}
	c := seeded(4)
	for _, pt := range cases {
		for count := 1; count <= 12; count++ {
			got := c.MultiplePostTimes(pt, count, from)
			if len(got) != count {
				t.Fatalf("%s: expected %d times, got %d", pt.Mode, count, len(got))
			}
			if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Before(got[j]) }) {
				t.Fatalf("%s: not sorted: %v", pt.Mode, got)
			}
			for _, ts := range got {
				if !ts.After(from) {
					t.Fatalf("%s: %s not after %s", pt.Mode, ts, from)
				}
			}
		}
	}
}

func TestVariableIntervalGaps(t *testing.T) {
	c := seeded(5)
	pt := model.PostingTimes{Mode: model.ModeVariableInterval, MinIntervalHours: 3, MaxIntervalHours: 5, ActiveHours: model.ActiveHours{StartHour: 9, EndHour: 18}, RandomizeMinutes: true}
	from := time.Date(2025, 6, 1, 10, 47, 0, 0, time.UTC)
	got := c.MultiplePostTimes(pt, 20, from)
	prev := from
	for _, ts := range got {
		if ts.Sub(prev) < 3*time.Hour {
			t.Fatalf("gap %s shorter than min interval", ts.Sub(prev))
		}
		if !InActiveHours(ts.Hour(), pt.ActiveHours) {
			t.Fatalf("hour %d outside active window", ts.Hour())
		}
		prev = ts
	}
}

func TestPostsPerDayBuckets(t *testing.T) {
	c := seeded(6)
	pt := model.PostingTimes{Mode: model.ModePostsPerDay, PostsPerDay: 2, ActiveHours: model.ActiveHours{StartHour: 9, EndHour: 17}}
	from := time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		got := c.MultiplePostTimes(pt, 2, from)
		if got[0].Hour() < 9 || got[0].Hour() > 12 {
			t.Fatalf("first bucket hour %d outside [9,12]", got[0].Hour())
		}
		if got[1].Hour() < 13 || got[1].Hour() > 16 {
			t.Fatalf("second bucket hour %d outside [13,16]", got[1].Hour())
		}
	}
}

func TestTimezoneShiftsWindow(t *testing.T) {
	c := seeded(7)
	pt := model.PostingTimes{Mode: model.ModePostsPerDay, PostsPerDay: 1, ActiveHours: model.ActiveHours{StartHour: 9, EndHour: 10}, Timezone: "America/New_York"}
	from := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	got := c.NextPostTime(pt, from)
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC result")
	}
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	if got.In(ny).Hour() != 9 {
		t.Fatalf("expected 09:xx New York time, got %s", got.In(ny))
	}
}

func TestPostsToGenerate(t *testing.T) {
	day := model.PostingTimes{Mode: model.ModePostsPerDay, PostsPerDay: 3, ActiveHours: model.ActiveHours{StartHour: 8, EndHour: 22}}
	if n := PostsToGenerate(day); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
	week := model.PostingTimes{Mode: model.ModePostsPerWeek, PostsPerWeek: 10}
	if n := PostsToGenerate(week); n != 2 {
		t.Fatalf("expected ceil(10/7)=2, got %d", n)
	}
	vi := model.PostingTimes{Mode: model.ModeVariableInterval, MinIntervalHours: 1, MaxIntervalHours: 2}
	if n := PostsToGenerate(vi); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

func TestLegacyPostTimes(t *testing.T) {
	c := seeded(8)
	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got := c.PostTimes(nil, 3, from)
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if !got[0].Equal(from.Add(5 * time.Minute)) {
		t.Fatalf("first legacy post should be in 5 minutes, got %s", got[0])
	}
	for i := 1; i < len(got); i++ {
		d := got[i].Sub(got[0]) - time.Duration(i)*4*time.Hour
		if d < -30*time.Minute || d > 30*time.Minute {
			t.Fatalf("legacy jitter out of range: %s", d)
		}
	}
}
