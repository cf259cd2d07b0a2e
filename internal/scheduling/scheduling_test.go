package scheduling

import (
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func testScheduler(now time.Time) *Scheduler {
	s := New(Preferences{
		models.PlatformFacebook: {Hours: []int{19, 13, 9}, Weekdays: weekdays},
		models.PlatformEtsy:     {Hours: []int{10, 14}},
		models.PlatformPoshmark: {},
	}, time.UTC)
	s.now = func() time.Time { return now }
	return s
}

// Saturday afternoon.
var saturday = time.Date(2024, time.June, 15, 15, 30, 0, 0, time.UTC)

func TestStaggeredScheduleOrdersSocialFirst(t *testing.T) {
	s := testScheduler(saturday)
	t0 := saturday

	slots := s.StaggeredSchedule([]models.Platform{models.PlatformEtsy, models.PlatformFacebook}, t0, 20)

	require.Len(t, slots, 2)
	assert.Equal(t, Slot{Platform: models.PlatformFacebook, At: t0}, slots[0])
	assert.Equal(t, Slot{Platform: models.PlatformEtsy, At: t0.Add(20 * time.Minute)}, slots[1])
}

func TestStaggeredScheduleUniqueTimestamps(t *testing.T) {
	s := testScheduler(saturday)
	input := []models.Platform{
		models.PlatformDepop, "myspace", models.PlatformInstagram, models.PlatformEtsy,
		models.PlatformInstagram, models.PlatformYoutube, models.PlatformEbay,
	}

	for _, stagger := range []int{0, 1, 15} {
		slots := s.StaggeredSchedule(input, saturday, stagger)
		require.Len(t, slots, 6, "duplicates dropped")

		seen := map[time.Time]bool{}
		for _, slot := range slots {
			assert.False(t, seen[slot.At], "timestamp reused")
			seen[slot.At] = true
		}
	}

	slots := s.StaggeredSchedule(input, saturday, 10)
	var order []models.Platform
	for _, slot := range slots {
		order = append(order, slot.Platform)
	}
	assert.Equal(t, []models.Platform{
		models.PlatformInstagram, models.PlatformYoutube,
		models.PlatformEtsy, models.PlatformEbay, models.PlatformDepop,
		"myspace",
	}, order)
}

func TestStaggeredScheduleIgnoresInputOrder(t *testing.T) {
	s := testScheduler(saturday)
	want := []models.Platform{models.PlatformFacebook, models.PlatformInstagram, models.PlatformEtsy, "aardvark", "zebra"}

	inputs := [][]models.Platform{
		{models.PlatformInstagram, models.PlatformFacebook, models.PlatformEtsy, "zebra", "aardvark"},
		{models.PlatformFacebook, models.PlatformInstagram, models.PlatformEtsy, "aardvark", "zebra"},
		{"zebra", models.PlatformEtsy, "aardvark", models.PlatformInstagram, models.PlatformFacebook},
		{models.PlatformEtsy, "aardvark", models.PlatformFacebook, "zebra", models.PlatformInstagram},
	}
	for _, input := range inputs {
		var order []models.Platform
		for _, slot := range s.StaggeredSchedule(input, saturday, 5) {
			order = append(order, slot.Platform)
		}
		assert.Equal(t, want, order, "input %v", input)
	}
}

func TestOptimalTimesNeverInPast(t *testing.T) {
	s := testScheduler(saturday)
	platforms := []models.Platform{models.PlatformFacebook, models.PlatformEtsy, models.PlatformPoshmark, "unknown"}

	got := s.OptimalTimes(platforms, 7)

	require.Len(t, got, 4)
	for p, times := range got {
		require.NotEmpty(t, times, p)
		for i, ts := range times {
			assert.True(t, ts.After(saturday), "%s: %s is not in the future", p, ts)
			if i > 0 {
				assert.True(t, ts.After(times[i-1]), "%s: times not ascending", p)
			}
		}
	}
}

func TestOptimalTimesWeekdayOnly(t *testing.T) {
	s := testScheduler(saturday)

	times := s.OptimalTimes([]models.Platform{models.PlatformFacebook}, 14)[models.PlatformFacebook]

	assert.Len(t, times, 10*3, "ten weekdays in the next two weeks, three hours each")
	for _, ts := range times {
		assert.NotEqual(t, time.Saturday, ts.Weekday())
		assert.NotEqual(t, time.Sunday, ts.Weekday())
	}
	assert.Equal(t, time.Date(2024, time.June, 17, 9, 0, 0, 0, time.UTC), times[0])
}

func TestOptimalTimesSkipsPassedHoursToday(t *testing.T) {
	s := testScheduler(saturday)

	times := s.OptimalTimes([]models.Platform{models.PlatformEtsy}, 1)[models.PlatformEtsy]

	// 10:00 has passed, 14:00 has passed; nothing left today.
	require.Len(t, times, 1)
	assert.Equal(t, time.Date(2024, time.June, 15, 16, 0, 0, 0, time.UTC), times[0], "falls back to the next full hour")
}

func TestOptimalTimesFallbackForEmptyPreferences(t *testing.T) {
	s := testScheduler(saturday)

	got := s.OptimalTimes([]models.Platform{models.PlatformPoshmark, models.PlatformPoshmark}, 3)

	assert.Equal(t, []time.Time{time.Date(2024, time.June, 15, 16, 0, 0, 0, time.UTC)}, got[models.PlatformPoshmark])
}

func TestNextOptimalTime(t *testing.T) {
	s := testScheduler(saturday)

	next := s.NextOptimalTime(models.PlatformFacebook, saturday)
	assert.Equal(t, time.Date(2024, time.June, 17, 9, 0, 0, 0, time.UTC), next)

	monday9 := time.Date(2024, time.June, 17, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.June, 17, 13, 0, 0, 0, time.UTC), s.NextOptimalTime(models.PlatformFacebook, monday9), "strictly after")

	assert.Equal(t, time.Date(2024, time.June, 15, 16, 0, 0, 0, time.UTC), s.NextOptimalTime("unknown", saturday))
}

func TestTimezoneIsRespected(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	s := New(Preferences{models.PlatformEtsy: {Hours: []int{10}}}, loc)
	s.now = func() time.Time { return time.Date(2024, time.June, 15, 3, 0, 0, 0, time.UTC) }

	times := s.OptimalTimes([]models.Platform{models.PlatformEtsy}, 1)[models.PlatformEtsy]

	require.Len(t, times, 1)
	assert.Equal(t, 10, times[0].In(loc).Hour())
	assert.Equal(t, time.Date(2024, time.June, 15, 4, 30, 0, 0, time.UTC), times[0].UTC())
}

func TestPriority(t *testing.T) {
	assert.Greater(t, Priority(models.PlatformFacebook), Priority(models.PlatformEtsy))
	assert.Greater(t, Priority(models.PlatformEtsy), Priority("myspace"))
	assert.Greater(t, Priority(models.PlatformLinkedin), Priority(models.PlatformEtsy))

	seen := map[int]models.Platform{}
	for _, p := range rankOrder {
		r := Priority(p)
		assert.NotContains(t, seen, r, "%s shares a rank with %s", p, seen[r])
		seen[r] = p
	}
}
