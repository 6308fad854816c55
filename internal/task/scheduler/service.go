package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"pricebot/internal/eventbus"
	rtsup "pricebot/internal/runtime/supervisor"
	logx "pricebot/pkg/logx"
)

const enqueueWarnThrottle = 5 * time.Second

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		bus: bus,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:      cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		lastEnqWarn: map[string]time.Time{},
	}
}

// Enabled reports the current config flag. Thread-safe; Apply() may run concurrently.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	newTZ := strings.TrimSpace(cfg.Timezone)
	s.cfg = cfg

	if s.c == nil {
		return
	}
	if oldTZ != newTZ {
		// Restart cron with the new location and re-register definitions.
		s.restartLocked()
	}
}

// Location returns the scheduler's effective timezone. Falls back to
// the configured TZ (or Local) when the service has not started yet.
func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc != nil {
		return s.loc
	}
	return s.loadLocationLocked()
}

// Start starts cron triggering and the execution pool.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	cur := s.cfg

	workers := cur.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cur.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	s.queue = make(chan execTask, queueSize)
	s.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(s.log.With(logx.String("comp", "scheduler"))),
		rtsup.WithCancelOnError(false),
	)
	q := s.queue
	for i := 0; i < workers; i++ {
		s.sup.GoRestart(fmt.Sprintf("worker.%d", i), func(c context.Context) error {
			s.workerLoop(c, q)
			return context.Canceled
		})
	}

	// Register definitions added before Start().
	for i := range s.defs {
		_ = s.addCronLocked(&s.defs[i])
	}
	s.c.Start()
	s.log.Info("service started", logx.String("tz", loc.String()), logx.Int("schedules", len(s.defs)), logx.Int("workers", workers))
}

// Stop stops cron triggering and drains the execution pool.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.log.Info("stop requested")

	s.mu.Lock()
	c := s.c
	sup := s.sup
	s.c = nil
	s.sup = nil
	s.queue = nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			// best-effort
		}
	}
	if sup != nil {
		_ = sup.Stop(ctx)
	}

	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) workerLoop(ctx context.Context, q <-chan execTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q:
			if !ok {
				return
			}
			s.runTask(ctx, t)
		}
	}
}

func (s *Service) runTask(ctx context.Context, t execTask) {
	defer func() {
		if t.running != nil {
			t.running.Store(false)
		}
		if r := recover(); r != nil {
			s.log.Error("scheduled task panicked", logx.String("task", t.name), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()

	runCtx := ctx
	timeout := t.timeout
	if timeout <= 0 {
		s.mu.Lock()
		timeout = s.cfg.DefaultTimeout
		s.mu.Unlock()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := t.job(runCtx)
	took := time.Since(start)
	if err != nil {
		s.log.Warn("scheduled task failed", logx.String("task", t.name), logx.Err(err), logx.Duration("took", took))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: "scheduler.task_failed", Data: t.name})
		}
		return
	}
	s.log.Debug("scheduled task done", logx.String("task", t.name), logx.Duration("took", took))
}

// enqueue hands a fired schedule to the execution pool.
func (s *Service) enqueue(d *scheduleDef) error {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		return ErrStopped
	}

	if d.overlap == OverlapSkipIfRunning && d.running != nil {
		if !d.running.CompareAndSwap(false, true) {
			return ErrOverlapSkip
		}
	}

	select {
	case q <- execTask{name: d.name, timeout: d.timeout, job: d.job, running: d.running}:
		return nil
	default:
		if d.running != nil {
			d.running.Store(false)
		}
		s.dropped.Add(1)
		return ErrQueueFull
	}
}

func (s *Service) reportEnqueueError(name string, err error) {
	if err == nil {
		return
	}
	// Overlap skips happen during normal operation.
	if err == ErrOverlapSkip {
		s.log.Debug("schedule trigger skipped", logx.String("schedule", name))
		return
	}

	now := time.Now()
	s.enqMu.Lock()
	last := s.lastEnqWarn[name]
	if !last.IsZero() && now.Sub(last) < enqueueWarnThrottle {
		s.enqMu.Unlock()
		return
	}
	s.lastEnqWarn[name] = now
	s.enqMu.Unlock()

	s.log.Warn("schedule failed to enqueue task", logx.String("schedule", name), logx.Err(err))
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	enabled := s.cfg.Enabled
	tz := s.cfg.Timezone
	workers := s.cfg.Workers
	defs := make([]scheduleDef, len(s.defs))
	copy(defs, s.defs)
	c := s.c
	loc := s.loc
	q := s.queue
	s.mu.Unlock()

	if loc == nil {
		loc = time.Local
	}
	if tz == "" {
		tz = loc.String()
	}
	if workers <= 0 {
		workers = 2
	}

	items := make([]ScheduleInfo, 0, len(defs))
	for _, d := range defs {
		it := ScheduleInfo{ID: d.id, Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		items = append(items, it)
	}

	snap := Snapshot{
		Enabled:   enabled,
		Timezone:  tz,
		Workers:   workers,
		Dropped:   s.dropped.Load(),
		Schedules: items,
	}
	if q != nil {
		snap.QueueLen = len(q)
		snap.QueueCap = cap(q)
	}
	return snap
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
