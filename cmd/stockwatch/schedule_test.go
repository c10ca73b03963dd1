package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}

func TestFiveMinuteScheduleNext(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"mid interval", at(2026, 10, 19, 10, 2, 0), at(2026, 10, 19, 10, 5, 5)},
		{"just after a wake", at(2026, 10, 19, 10, 5, 3), at(2026, 10, 19, 10, 10, 5)},
		{"exactly on a wake", at(2026, 10, 19, 10, 5, 5), at(2026, 10, 19, 10, 10, 5)},
		{"hour rollover", at(2026, 10, 19, 10, 58, 30), at(2026, 10, 19, 11, 0, 5)},
		{"day rollover", at(2026, 10, 19, 23, 59, 10), at(2026, 10, 20, 0, 0, 5)},
		{"year rollover", at(2026, 12, 31, 23, 57, 0), at(2027, 1, 1, 0, 0, 5)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FiveMinuteSchedule{}.Next(tc.now))
		})
	}
}

func TestFiveMinuteScheduleKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	next := FiveMinuteSchedule{}.Next(time.Date(2026, 10, 19, 10, 2, 0, 0, loc))

	assert.Equal(t, loc, next.Location())
	assert.Equal(t, 10, next.Hour())
	assert.Equal(t, 5, next.Minute())
}

func TestParseWakeSchedule(t *testing.T) {
	schedule, err := ParseWakeSchedule("")
	require.NoError(t, err)
	assert.IsType(t, FiveMinuteSchedule{}, schedule)

	schedule, err = ParseWakeSchedule("5 */5 * * * *")
	require.NoError(t, err)
	next := schedule.Next(at(2026, 10, 19, 10, 2, 0))
	assert.True(t, next.Equal(at(2026, 10, 19, 10, 5, 5)), "got %s", next)

	_, err = ParseWakeSchedule("every now and then")
	assert.Error(t, err)
}

func TestGateOpen(t *testing.T) {
	gate, err := ParseGate("")
	require.NoError(t, err)

	assert.True(t, gate.Open(at(2026, 10, 19, 10, 30, 5)))
	assert.True(t, gate.Open(at(2026, 10, 19, 11, 0, 5)))
	assert.False(t, gate.Open(at(2026, 10, 19, 10, 5, 5)))
	assert.False(t, gate.Open(at(2026, 10, 19, 10, 30, 6)))
	assert.False(t, gate.Open(at(2026, 10, 19, 10, 30, 5).Add(500*time.Millisecond)))
}

func TestGateCustomExpression(t *testing.T) {
	gate, err := ParseGate("5 0 * * * *")
	require.NoError(t, err)

	assert.True(t, gate.Open(at(2026, 10, 19, 11, 0, 5)))
	assert.False(t, gate.Open(at(2026, 10, 19, 10, 30, 5)))

	_, err = ParseGate("61 * * * * *")
	assert.Error(t, err)
}

func TestNextWakesGatesEverySixthWake(t *testing.T) {
	gate, err := ParseGate(DefaultFilteredGate)
	require.NoError(t, err)

	wakes := NextWakes(FiveMinuteSchedule{}, at(2026, 10, 19, 10, 2, 0), 12)
	require.Len(t, wakes, 12)
	assert.Equal(t, at(2026, 10, 19, 10, 5, 5), wakes[0])
	assert.Equal(t, at(2026, 10, 19, 11, 0, 5), wakes[11])

	var gated []time.Time
	for _, w := range wakes {
		if gate.Open(w) {
			gated = append(gated, w)
		}
	}
	assert.Equal(t, []time.Time{at(2026, 10, 19, 10, 30, 5), at(2026, 10, 19, 11, 0, 5)}, gated)
}
