// Package scheduling picks posting times from per-platform hour and weekday
// preferences.
package scheduling

import (
	"sort"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	lookaheadDays    = 14
	defaultDaysAhead = 7
)

// PreferenceSource supplies the posting preference of a platform.
type PreferenceSource interface {
	Preference(platform models.Platform) (models.SchedulePreference, bool)
}

type Preferences map[models.Platform]models.SchedulePreference

func (p Preferences) Preference(platform models.Platform) (models.SchedulePreference, bool) {
	pref, ok := p[platform]
	return pref, ok
}

type PreferenceFunc func(platform models.Platform) (models.SchedulePreference, bool)

func (f PreferenceFunc) Preference(platform models.Platform) (models.SchedulePreference, bool) {
	return f(platform)
}

type Slot struct {
	Platform models.Platform `json:"platform"`
	At       time.Time       `json:"scheduled_at"`
}

type Scheduler struct {
	prefs PreferenceSource
	loc   *time.Location
	now   func() time.Time
}

// New builds a scheduler evaluating preferences in loc (UTC when nil).
func New(prefs PreferenceSource, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{prefs: prefs, loc: loc, now: time.Now}
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// OptimalTimes lists every preferred slot in the next daysAhead days for each
// platform, ascending. A platform without usable preferences gets the next
// full hour.
func (s *Scheduler) OptimalTimes(platforms []models.Platform, daysAhead int) map[models.Platform][]time.Time {
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}
	now := s.now().In(s.loc)

	out := make(map[models.Platform][]time.Time, len(platforms))
	for _, p := range platforms {
		if _, done := out[p]; done {
			continue
		}
		times := s.candidates(p, now, daysAhead, 0)
		if len(times) == 0 {
			times = []time.Time{nextHour(now)}
		}
		out[p] = times
	}
	return out
}

// NextOptimalTime returns the first preferred slot strictly after after,
// looking two weeks ahead, or the next top of the hour.
func (s *Scheduler) NextOptimalTime(platform models.Platform, after time.Time) time.Time {
	after = after.In(s.loc)
	if times := s.candidates(platform, after, lookaheadDays+1, 1); len(times) > 0 {
		return times[0]
	}
	return nextHour(after)
}

// candidates enumerates preferred slots after from on days [0, days) of
// from's calendar. limit 0 means no limit.
func (s *Scheduler) candidates(platform models.Platform, from time.Time, days, limit int) []time.Time {
	pref, ok := s.preference(platform)
	if !ok {
		return nil
	}
	hours := sortedHours(pref.Hours)
	if len(hours) == 0 {
		return nil
	}
	allowed := weekdaySet(pref.Weekdays)

	var out []time.Time
	y, m, d := from.Date()
	for day := 0; day < days; day++ {
		date := time.Date(y, m, d+day, 0, 0, 0, 0, s.loc)
		if allowed != nil && !allowed[date.Weekday()] {
			continue
		}
		for _, h := range hours {
			t := time.Date(y, m, d+day, h, 0, 0, 0, s.loc)
			if !t.After(from) {
				continue
			}
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}

func (s *Scheduler) preference(platform models.Platform) (models.SchedulePreference, bool) {
	if s.prefs == nil {
		return models.SchedulePreference{}, false
	}
	return s.prefs.Preference(platform)
}

// StaggeredSchedule orders platforms by Priority (duplicates dropped, unknown
// platforms last by name) and spaces them staggerMinutes apart from start.
// The order never depends on the order of the input.
func (s *Scheduler) StaggeredSchedule(platforms []models.Platform, start time.Time, staggerMinutes int) []Slot {
	if staggerMinutes < 1 {
		staggerMinutes = 1
	}

	seen := make(map[models.Platform]bool, len(platforms))
	ordered := make([]models.Platform, 0, len(platforms))
	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		pi, pj := Priority(ordered[i]), Priority(ordered[j])
		if pi != pj {
			return pi > pj
		}
		return ordered[i] < ordered[j]
	})

	slots := make([]Slot, len(ordered))
	for i, p := range ordered {
		slots[i] = Slot{Platform: p, At: start.Add(time.Duration(i*staggerMinutes) * time.Minute)}
	}
	return slots
}

// rankOrder is the fixed posting order: social platforms first, then
// marketplaces.
var rankOrder = []models.Platform{
	models.PlatformFacebook,
	models.PlatformInstagram,
	models.PlatformTwitter,
	models.PlatformPinterest,
	models.PlatformTiktok,
	models.PlatformYoutube,
	models.PlatformLinkedin,
	models.PlatformEtsy,
	models.PlatformEbay,
	models.PlatformShopify,
	models.PlatformPoshmark,
	models.PlatformMercari,
	models.PlatformDepop,
}

// Priority gives every known platform a distinct rank, higher first, with
// every social platform above every marketplace. Unknown platforms get 0.
// Queue entries inherit it.
func Priority(platform models.Platform) int {
	for i, p := range rankOrder {
		if p == platform {
			return len(rankOrder) - i
		}
	}
	return 0
}

func nextHour(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour()+1, 0, 0, 0, t.Location())
}

func sortedHours(hours []int) []int {
	seen := make(map[int]bool, len(hours))
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

func weekdaySet(days []time.Weekday) map[time.Weekday]bool {
	if len(days) == 0 {
		return nil
	}
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
