package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateStreak(t *testing.T) {
	base := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := base.Add(d)
		return &v
	}

	tests := []struct {
		name        string
		state       StreakState
		now         time.Time
		wantCurrent int
		wantLongest int
	}{
		{"first activity", StreakState{}, base, 1, 1},
		{"first activity keeps longer history", StreakState{Longest: 9}, base, 1, 9},
		{"same day unchanged", StreakState{Current: 3, Longest: 5, LastActivity: at(0)}, base, 3, 5},
		{"same day later hour", StreakState{Current: 3, Longest: 5, LastActivity: at(0)}, base.Add(10 * time.Hour), 3, 5},
		{"next day increments", StreakState{Current: 3, Longest: 5, LastActivity: at(0)}, base.Add(24 * time.Hour), 4, 5},
		{"next calendar day under 24h", StreakState{Current: 3, Longest: 5, LastActivity: at(0)}, time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC), 4, 5},
		{"increment raises longest", StreakState{Current: 5, Longest: 5, LastActivity: at(0)}, base.Add(24 * time.Hour), 6, 6},
		{"two day gap resets", StreakState{Current: 3, Longest: 5, LastActivity: at(0)}, base.Add(48 * time.Hour), 1, 5},
		{"three day gap resets", StreakState{Current: 3, Longest: 5, LastActivity: at(0)}, base.Add(72 * time.Hour), 1, 5},
		{"clock skew treated as same day", StreakState{Current: 2, Longest: 2, LastActivity: at(24 * time.Hour)}, base, 2, 2},
		{"same day with zero streak floors at one", StreakState{Current: 0, Longest: 0, LastActivity: at(0)}, base, 1, 1},
		{"negative counters sanitized", StreakState{Current: -4, Longest: -1}, base, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateStreak(tt.state, tt.now)
			assert.Equal(t, tt.wantCurrent, got.Current)
			assert.Equal(t, tt.wantLongest, got.Longest)
			require.NotNil(t, got.LastActivity)
			assert.True(t, got.LastActivity.Equal(tt.now))
			assert.LessOrEqual(t, got.Current, got.Longest)
		})
	}
}

func TestUpdateStreakDoesNotMutateInput(t *testing.T) {
	last := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	in := StreakState{Current: 3, Longest: 5, LastActivity: &last}

	out := UpdateStreak(in, last.Add(24*time.Hour))

	assert.Equal(t, 3, in.Current)
	assert.True(t, in.LastActivity.Equal(last))
	assert.NotSame(t, in.LastActivity, out.LastActivity)
}

func TestDayGapUsesCallerLocation(t *testing.T) {
	tz := time.FixedZone("UTC+8", 8*3600)
	last := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) // 3/10 23:00 in UTC+8
	now := time.Date(2024, 3, 11, 1, 0, 0, 0, tz)

	assert.Equal(t, 1, DayGap(last, now))
	assert.Equal(t, 0, DayGap(last, now.UTC()))
}

func TestStreakBroken(t *testing.T) {
	now := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	old := now.Add(-72 * time.Hour)

	assert.False(t, StreakBroken(StreakState{Current: 2, LastActivity: &yesterday}, now))
	assert.True(t, StreakBroken(StreakState{Current: 2, LastActivity: &old}, now))
	assert.False(t, StreakBroken(StreakState{}, now))
}
