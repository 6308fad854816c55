package monitor

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Cadence decides when the next cycle runs. The first cycle always runs
// immediately at startup; Next only governs the gap after a successful
// cycle. Fetch failures use the runner's fault backoff instead.
type Cadence interface {
	Next(now time.Time) time.Time
}

type intervalCadence struct {
	every time.Duration
}

// Interval runs a cycle every d, measured from the end of the previous
// cycle so slow fetches never pile up.
func Interval(d time.Duration) Cadence {
	if d <= 0 {
		d = time.Minute
	}
	return intervalCadence{every: d}
}

func (c intervalCadence) Next(now time.Time) time.Time { return now.Add(c.every) }

type cronCadence struct {
	sched cron.Schedule
}

func (c cronCadence) Next(now time.Time) time.Time { return c.sched.Next(now) }

var cadenceParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Hourly wakes at the top of every hour in loc.
func Hourly(loc *time.Location) Cadence {
	c, _ := cronSpec("0 * * * *", loc)
	return c
}

// DailyAt wakes once per day at hh:mm in loc.
func DailyAt(hh, mm int, loc *time.Location) (Cadence, error) {
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return nil, fmt.Errorf("invalid daily time %02d:%02d", hh, mm)
	}
	return cronSpec(fmt.Sprintf("%d %d * * *", mm, hh), loc)
}

func cronSpec(spec string, loc *time.Location) (Cadence, error) {
	if loc == nil {
		loc = time.Local
	}
	sched, err := cadenceParser.Parse(fmt.Sprintf("CRON_TZ=%s %s", loc.String(), spec))
	if err != nil {
		return nil, fmt.Errorf("cadence spec %q: %w", spec, err)
	}
	return cronCadence{sched: sched}, nil
}
