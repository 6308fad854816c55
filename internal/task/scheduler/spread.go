package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/robfig/cron/v3"
)

const maxStartupJitter = 30 * time.Second

// firstRunSchedule delays the first firing of a schedule to a fixed
// instant, then hands over to the wrapped schedule.
type firstRunSchedule struct {
	cron.Schedule
	first time.Time
}

func (s *firstRunSchedule) Next(t time.Time) time.Time {
	if !s.first.IsZero() && t.Before(s.first) {
		return s.first
	}
	return s.Schedule.Next(t)
}

// intervalScheduleWithJitter builds an @every-style schedule whose first
// run is pushed out by a random amount, so many interval tasks registered
// at startup don't all fire in the same instant. The jitter is capped at
// the interval itself and at maxStartupJitter.
func intervalScheduleWithJitter(every time.Duration, now time.Time) (cron.Schedule, time.Duration) {
	base := cron.Every(every)
	limit := min(every, maxStartupJitter)
	if limit <= 0 {
		return base, 0
	}
	jitter := rand.N(limit)
	return &firstRunSchedule{Schedule: base, first: now.Add(every + jitter)}, jitter
}
