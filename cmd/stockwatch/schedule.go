package main

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// FiveMinuteSchedule wakes at second 5 of the next five minute boundary after
// the one containing the current time: 10:02:00 wakes at 10:05:05, 10:05:03
// at 10:10:05. Minute and hour overflow roll into the next hour and day.
type FiveMinuteSchedule struct{}

// Next implements cron.Schedule.
func (FiveMinuteSchedule) Next(now time.Time) time.Time {
	next := (now.Minute()/WakeIntervalMinutes + 1) * WakeIntervalMinutes
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), next, WakeSecond, 0, now.Location())
}

// ParseWakeSchedule returns the tick schedule for expr. An empty expression
// selects FiveMinuteSchedule; anything else is a cron spec with a seconds
// field, e.g. "5 */5 * * * *".
func ParseWakeSchedule(expr string) (cron.Schedule, error) {
	if expr == "" {
		return FiveMinuteSchedule{}, nil
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// Gate decides which wake instants also post the filtered tier.
type Gate struct {
	schedule cron.Schedule
}

// ParseGate builds a gate from a cron spec with a seconds field. An empty
// expression uses DefaultFilteredGate (minute 0 and 30, second 5).
func ParseGate(expr string) (*Gate, error) {
	if expr == "" {
		expr = DefaultFilteredGate
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filtered gate %q: %w", expr, err)
	}
	return &Gate{schedule: schedule}, nil
}

// Open reports whether wake falls exactly on a gate instant.
func (g *Gate) Open(wake time.Time) bool {
	w := wake.Truncate(time.Second)
	if !w.Equal(wake) {
		return false
	}
	return g.schedule.Next(w.Add(-time.Second)).Equal(w)
}

// NextWakes lists the next n wake instants after from.
func NextWakes(schedule cron.Schedule, from time.Time, n int) []time.Time {
	wakes := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		from = schedule.Next(from)
		if from.IsZero() {
			break
		}
		wakes = append(wakes, from)
	}
	return wakes
}
