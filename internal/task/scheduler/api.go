package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "pricebot/pkg/logx"
)

func (s *Service) AddCron(name, spec string, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	return s.AddCronOpt(name, spec, timeout, OverlapSkipIfRunning, job)
}

func (s *Service) AddCronOpt(name, spec string, timeout time.Duration, overlap OverlapPolicy, job func(ctx context.Context) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return "", errors.New("name required")
	}
	// Upsert by name so hot reloads and repeated registrations don't
	// leave duplicates behind.
	_ = s.removeScheduleLocked(name)
	id := fmt.Sprintf("cron:%d", time.Now().UnixNano())
	d := scheduleDef{
		id:      id,
		name:    name,
		spec:    spec,
		timeout: timeout,
		overlap: overlap,
		job:     job,
		running: new(atomic.Bool),
	}
	s.defs = append(s.defs, d)
	if s.c != nil {
		err := s.addCronLocked(&s.defs[len(s.defs)-1])
		if err != nil {
			s.log.Error("schedule register failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
		} else {
			s.log.Debug("schedule registered", logx.String("name", name), logx.String("spec", spec), logx.Duration("timeout", d.timeout), logx.String("next", s.previewNextRunsLocked(spec, 3)))
		}
		// Return the schedule name (stable identifier for Remove(name)).
		return name, err
	}
	// Scheduler not started/enabled yet: keep the definition and register
	// when Start() runs.
	return name, nil
}

func (s *Service) AddInterval(name string, every time.Duration, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	return s.AddIntervalOpt(name, every, timeout, OverlapSkipIfRunning, job)
}

func (s *Service) AddIntervalOpt(name string, every time.Duration, timeout time.Duration, overlap OverlapPolicy, job func(ctx context.Context) error) (string, error) {
	if every <= 0 {
		return "", errors.New("interval must be > 0")
	}
	spec := fmt.Sprintf("@every %s", every.String())
	return s.AddCronOpt(name, spec, timeout, overlap, job)
}

// AddDaily registers a job that runs once per day at HH:MM in the
// scheduler timezone.
func (s *Service) AddDaily(name string, atHHMM string, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	h, m, err := parseHHMM(atHHMM)
	if err != nil {
		return "", err
	}
	spec := fmt.Sprintf("%d %d * * *", m, h)
	return s.AddCronOpt(name, spec, timeout, OverlapSkipIfRunning, job)
}

// Remove unschedules all schedules with the given name. It returns true
// if something was removed. Safe to call before Start().
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	removed := s.removeScheduleLocked(name)
	s.mu.Unlock()
	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

// removeScheduleLocked removes all defs matching name and unregisters
// them from cron if running. Call with s.mu held.
func (s *Service) removeScheduleLocked(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	removed := false
	if s.c != nil {
		for i := range s.defs {
			if s.defs[i].name == name && s.defs[i].entryID != 0 {
				s.c.Remove(s.defs[i].entryID)
				s.defs[i].entryID = 0
				removed = true
			}
		}
	}
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	spec := strings.TrimSpace(d.spec)
	def := d
	job := cron.FuncJob(func() {
		if err := s.enqueue(def); err != nil {
			s.reportEnqueueError(def.name, err)
		}
	})

	// Startup spread only for interval schedules (@every ...), to avoid a
	// thundering herd right after service start.
	if strings.HasPrefix(spec, "@every") {
		everyStr := strings.TrimSpace(strings.TrimPrefix(spec, "@every"))
		every, err := time.ParseDuration(everyStr)
		if err == nil && every > 0 {
			loc := s.loc
			if loc == nil {
				loc = time.Local
			}
			sched, jitter := intervalScheduleWithJitter(every, time.Now().In(loc))
			d.startupSpread = jitter
			d.entryID = s.c.Schedule(sched, job)
			return nil
		}
	}

	d.startupSpread = 0
	eid, err := s.c.AddJob(d.spec, job)
	if err == nil {
		d.entryID = eid
	}
	return err
}

func (s *Service) restartLocked() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	for i := range s.defs {
		_ = s.addCronLocked(&s.defs[i])
	}
	s.c.Start()
	s.log.Info("service restarted", logx.String("tz", loc.String()), logx.Int("schedules", len(s.defs)))
}

// previewNextRunsLocked returns a short list of upcoming run times for
// the given cron spec. Call with s.mu held.
func (s *Service) previewNextRunsLocked(spec string, n int) string {
	if !s.log.Enabled(logx.LevelDebug) || n <= 0 {
		return ""
	}
	loc := s.loc
	if loc == nil {
		loc = s.loadLocationLocked()
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return ""
	}
	t := time.Now().In(loc)
	var b strings.Builder
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
