// Package monitor runs price-feed polling loops.
//
// A Runner drives one feed through a fixed cycle: fetch the upstream
// source, evaluate the result against the feed's persisted baseline,
// dispatch a notification when the evaluation says so, then commit the
// outcome back to the baseline. The runner owns scheduling and fault
// handling; feeds implement only the Cycle steps.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pricebot/internal/eventbus"
	logx "pricebot/pkg/logx"
)

// Cycle is one feed's behavior. The runner calls the steps in order and
// never concurrently.
//
// Commit is called after every evaluated cycle, including ones that did
// not notify; sendErr is nil unless Dispatch ran and failed. Feeds use
// it to advance observed state always and notified state only on a
// confirmed send.
type Cycle[T any] interface {
	Fetch(ctx context.Context) (T, error)
	Evaluate(rec T) Decision
	Dispatch(ctx context.Context, rec T, d Decision) (text string, err error)
	Commit(rec T, d Decision, sendErr error)
}

type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateEvaluating  State = "evaluating"
	StateDispatching State = "dispatching"
	StateSleeping    State = "sleeping"
	StateFaulted     State = "faulted"
)

// FeedNotified is the payload published on eventbus.EventFeedNotified
// after every dispatch attempt.
type FeedNotified struct {
	Feed     string
	Decision Decision
	Text     string
	OK       bool
	Error    string
	At       time.Time
	TookMS   int64
}

// Snapshot is a point-in-time view of one runner, for status commands.
type Snapshot struct {
	Feed        string
	State       State
	LastCycleAt time.Time
	NextCycleAt time.Time
	LastError   string
	Cycles      uint64
	Notified    uint64
	Faults      uint64
}

type Options struct {
	// FaultBackoff is the fixed sleep after a failed fetch. It replaces
	// the cadence gap for that cycle only; it does not grow.
	FaultBackoff time.Duration
	// CycleTimeout bounds one whole fetch+dispatch pass.
	CycleTimeout time.Duration
}

const (
	defaultFaultBackoff = 30 * time.Second
	defaultCycleTimeout = 45 * time.Second
)

// Runner drives one Cycle on a Cadence until its context ends. A fetch
// failure logs, backs off, and retries; it never terminates the loop.
type Runner[T any] struct {
	feed    string
	cycle   Cycle[T]
	cadence Cadence
	opts    Options
	log     logx.Logger
	bus     eventbus.Bus

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	mu   sync.Mutex
	snap Snapshot
}

func NewRunner[T any](feed string, cycle Cycle[T], cadence Cadence, opts Options, log logx.Logger, bus eventbus.Bus) (*Runner[T], error) {
	if feed == "" {
		return nil, fmt.Errorf("runner feed name is required")
	}
	if cycle == nil || cadence == nil {
		return nil, fmt.Errorf("runner %s: cycle and cadence are required", feed)
	}
	if opts.FaultBackoff <= 0 {
		opts.FaultBackoff = defaultFaultBackoff
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = defaultCycleTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner[T]{
		feed:    feed,
		cycle:   cycle,
		cadence: cadence,
		opts:    opts,
		log:     log.With(logx.String("feed", feed)),
		bus:     bus,
		now:     time.Now,
		sleep:   sleepCtx,
	}, nil
}

// Run blocks until ctx is canceled. The first cycle starts immediately.
func (r *Runner[T]) Run(ctx context.Context) {
	r.log.Info("monitor started",
		logx.Duration("fault_backoff", r.opts.FaultBackoff),
		logx.Duration("cycle_timeout", r.opts.CycleTimeout))

	for {
		if ctx.Err() != nil {
			r.setState(StateIdle)
			r.log.Info("monitor stopped")
			return
		}

		ok := r.runCycle(ctx)

		var gap time.Duration
		if ok {
			next := r.cadence.Next(r.now())
			gap = next.Sub(r.now())
			r.setNext(next)
			r.setState(StateSleeping)
		} else {
			gap = r.opts.FaultBackoff
			r.setNext(r.now().Add(gap))
			r.setState(StateFaulted)
		}
		if gap < 0 {
			gap = 0
		}
		if !r.sleep(ctx, gap) {
			r.setState(StateIdle)
			r.log.Info("monitor stopped")
			return
		}
	}
}

// runCycle executes one pass. It returns false only on fetch failure;
// dispatch failures are committed and journaled but follow the normal
// cadence, since the next fetch is what can retry them.
func (r *Runner[T]) runCycle(ctx context.Context) bool {
	started := r.now()
	cctx, cancel := context.WithTimeout(ctx, r.opts.CycleTimeout)
	defer cancel()

	r.setState(StateFetching)
	rec, err := r.cycle.Fetch(cctx)
	if err != nil {
		r.recordFault(err)
		r.log.Warn("fetch failed", logx.Err(err))
		return false
	}

	r.setState(StateEvaluating)
	decision := r.cycle.Evaluate(rec)

	var sendErr error
	var text string
	if decision.Notifies() {
		r.setState(StateDispatching)
		text, sendErr = r.cycle.Dispatch(cctx, rec, decision)
		if sendErr != nil {
			r.log.Warn("dispatch failed", logx.String("decision", decision.String()), logx.Err(sendErr))
		} else {
			r.log.Info("notified", logx.String("decision", decision.String()))
		}
		r.publishNotified(decision, text, sendErr, started)
	} else {
		r.log.Trace("no notification", logx.String("decision", decision.String()))
	}

	r.cycle.Commit(rec, decision, sendErr)
	r.recordCycle(decision, sendErr)
	return true
}

func (r *Runner[T]) publishNotified(d Decision, text string, sendErr error, started time.Time) {
	if r.bus == nil {
		return
	}
	ev := FeedNotified{
		Feed:     r.feed,
		Decision: d,
		Text:     text,
		OK:       sendErr == nil,
		At:       r.now(),
		TookMS:   r.now().Sub(started).Milliseconds(),
	}
	if sendErr != nil {
		ev.Error = sendErr.Error()
	}
	r.bus.Publish(eventbus.Event{Type: eventbus.EventFeedNotified, Data: ev})
}

// Snapshot returns the runner's current counters and state.
func (r *Runner[T]) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap
	s.Feed = r.feed
	return s
}

func (r *Runner[T]) setState(st State) {
	r.mu.Lock()
	r.snap.State = st
	r.mu.Unlock()
}

func (r *Runner[T]) setNext(t time.Time) {
	r.mu.Lock()
	r.snap.NextCycleAt = t
	r.mu.Unlock()
}

func (r *Runner[T]) recordCycle(d Decision, sendErr error) {
	r.mu.Lock()
	r.snap.Cycles++
	r.snap.LastCycleAt = r.now()
	if d.Notifies() && sendErr == nil {
		r.snap.Notified++
	}
	if sendErr != nil {
		r.snap.LastError = sendErr.Error()
	} else {
		r.snap.LastError = ""
	}
	r.mu.Unlock()
}

func (r *Runner[T]) recordFault(err error) {
	r.mu.Lock()
	r.snap.Cycles++
	r.snap.Faults++
	r.snap.LastCycleAt = r.now()
	r.snap.LastError = err.Error()
	r.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		// Still honor cancellation between back-to-back cycles.
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
