package schedule

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"ambitious/internal/model"
)

// Calculator turns a PostingTimes value into concrete timestamps.
// It is safe for concurrent use.
type Calculator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Calculator drawing from rnd. A nil rnd seeds from the clock.
func New(rnd *rand.Rand) *Calculator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Calculator{rnd: rnd}
}

func (c *Calculator) intn(n int) int {
	if n <= 1 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Intn(n)
}

// between returns a uniform integer in [lo, hi].
func (c *Calculator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.intn(hi-lo+1)
}

// NextPostTime returns one timestamp after from that respects the schedule.
func (c *Calculator) NextPostTime(pt model.PostingTimes, from time.Time) time.Time {
	loc := location(pt, from)
	f := from.In(loc)
	ah := pt.ActiveHours
	switch pt.Mode {
	case model.ModePostsPerDay:
		t := c.at(pt, f.Year(), f.Month(), f.Day(), c.activeHour(ah), loc)
		if !t.After(from) {
			return c.fallback(pt, from, loc)
		}
		return t.UTC()
	case model.ModePostsPerWeek:
		t := c.at(pt, f.Year(), f.Month(), f.Day()+c.intn(7), c.activeHour(ah), loc)
		if !t.After(from) {
			t = t.AddDate(0, 0, 1)
		}
		return t.UTC()
	case model.ModeVariableInterval:
		gap := c.between(pt.MinIntervalHours, pt.MaxIntervalHours)
		base := ceilHour(f.Add(time.Duration(gap) * time.Hour))
		t := c.at(pt, base.Year(), base.Month(), base.Day(), base.Hour(), loc)
		if !InActiveHours(t.Hour(), ah) {
			snap := c.at(pt, t.Year(), t.Month(), t.Day(), ah.StartHour, loc)
			if !snap.After(t) {
				snap = snap.AddDate(0, 0, 1)
			}
			t = snap
		}
		if !t.After(from) {
			t = t.AddDate(0, 0, 1)
		}
		return t.UTC()
	default:
		return c.fallback(pt, from, loc)
	}
}

// MultiplePostTimes returns count timestamps after from, sorted ascending.
func (c *Calculator) MultiplePostTimes(pt model.PostingTimes, count int, from time.Time) []time.Time {
	if count <= 0 {
		return nil
	}
	loc := location(pt, from)
	f := from.In(loc)
	ah := pt.ActiveHours
	out := make([]time.Time, 0, count)
	switch pt.Mode {
	case model.ModePostsPerDay:
		span := ActiveSpan(ah)
		bucket := span / count
		if bucket < 1 {
			bucket = 1
		}
		for i := 0; i < count; i++ {
			offset := (i*bucket + c.intn(bucket)) % span
			hour := (ah.StartHour + offset) % 24
			t := c.at(pt, f.Year(), f.Month(), f.Day(), hour, loc)
			if !t.After(from) {
				t = t.AddDate(0, 0, 1)
			}
			out = append(out, t.UTC())
		}
	case model.ModePostsPerWeek:
		bucket := 7 / count
		if bucket < 1 {
			bucket = 1
		}
		for i := 0; i < count; i++ {
			day := (i*bucket + c.intn(bucket)) % 7
			t := c.at(pt, f.Year(), f.Month(), f.Day()+day, c.activeHour(ah), loc)
			if !t.After(from) {
				t = t.AddDate(0, 0, 1)
			}
			out = append(out, t.UTC())
		}
	default:
		cur := from
		for i := 0; i < count; i++ {
			cur = c.NextPostTime(pt, cur)
			out = append(out, cur)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// LegacyPostTimes spaces posts when an NPC has no structured schedule:
// the first lands in five minutes, the rest four hours apart give or take half an hour.
func (c *Calculator) LegacyPostTimes(count int, from time.Time) []time.Time {
	out := make([]time.Time, 0, count)
	first := from.Add(5 * time.Minute)
	for i := 0; i < count; i++ {
		t := first.Add(time.Duration(i) * 4 * time.Hour)
		if i > 0 {
			t = t.Add(time.Duration(c.between(-30, 30)) * time.Minute)
		}
		out = append(out, t.UTC().Truncate(time.Second))
	}
	return out
}

// PostTimes picks the structured schedule when present and the legacy spacing otherwise.
func (c *Calculator) PostTimes(pt *model.PostingTimes, count int, from time.Time) []time.Time {
	if pt == nil || pt.Mode == "" {
		return c.LegacyPostTimes(count, from)
	}
	return c.MultiplePostTimes(*pt, count, from)
}

// PostsToGenerate sizes one generation batch for the schedule.
func PostsToGenerate(pt model.PostingTimes) int {
	switch pt.Mode {
	case model.ModePostsPerDay:
		return pt.PostsPerDay
	case model.ModePostsPerWeek:
		return (pt.PostsPerWeek + 6) / 7
	default:
		return 3
	}
}

// ActiveSpan is the number of hours in the active window. Equal start and end means all day.
func ActiveSpan(ah model.ActiveHours) int {
	switch {
	case ah.StartHour < ah.EndHour:
		return ah.EndHour - ah.StartHour
	case ah.StartHour > ah.EndHour:
		return 24 - ah.StartHour + ah.EndHour
	default:
		return 24
	}
}

// InActiveHours reports whether hour h falls inside the window.
func InActiveHours(h int, ah model.ActiveHours) bool {
	switch {
	case ah.StartHour < ah.EndHour:
		return h >= ah.StartHour && h < ah.EndHour
	case ah.StartHour > ah.EndHour:
		return h >= ah.StartHour || h < ah.EndHour
	default:
		return true
	}
}

func (c *Calculator) activeHour(ah model.ActiveHours) int {
	return (ah.StartHour + c.intn(ActiveSpan(ah))) % 24
}

func (c *Calculator) minute(pt model.PostingTimes) int {
	if pt.RandomizeMinutes {
		return c.intn(60)
	}
	return 0
}

func (c *Calculator) at(pt model.PostingTimes, y int, m time.Month, d, h int, loc *time.Location) time.Time {
	return time.Date(y, m, d, h, c.minute(pt), 0, 0, loc)
}

func (c *Calculator) fallback(pt model.PostingTimes, from time.Time, loc *time.Location) time.Time {
	t := from.In(loc).Add(time.Duration(c.between(1, 4)) * time.Hour)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), c.minute(pt), 0, 0, loc).UTC()
}

// ceilHour rounds t up to the next whole hour of its location.
func ceilHour(t time.Time) time.Time {
	h := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	if h.Before(t) {
		h = h.Add(time.Hour)
	}
	return h
}

// location resolves the zone active hours are read in.
func location(pt model.PostingTimes, from time.Time) *time.Location {
	if pt.Timezone != "" {
		if loc, err := time.LoadLocation(pt.Timezone); err == nil {
			return loc
		}
	}
	return from.Location()
}
