package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pricebot/internal/eventbus"
	logx "pricebot/pkg/logx"
)

type step struct {
	rec      float64
	fetchErr error
	decision Decision
	sendErr  error
}

// fakeCycle replays a scripted sequence of cycles and records every
// Commit call.
type fakeCycle struct {
	mu      sync.Mutex
	steps   []step
	i       int
	commits []struct {
		rec     float64
		d       Decision
		sendErr error
	}
	done chan struct{} // closed when the script is exhausted
}

func newFakeCycle(steps ...step) *fakeCycle {
	return &fakeCycle{steps: steps, done: make(chan struct{})}
}

func (f *fakeCycle) cur() step {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.i >= len(f.steps) {
		return f.steps[len(f.steps)-1]
	}
	return f.steps[f.i]
}

func (f *fakeCycle) Fetch(ctx context.Context) (float64, error) {
	s := f.cur()
	return s.rec, s.fetchErr
}

func (f *fakeCycle) Evaluate(rec float64) Decision { return f.cur().decision }

func (f *fakeCycle) Dispatch(ctx context.Context, rec float64, d Decision) (string, error) {
	return "msg", f.cur().sendErr
}

func (f *fakeCycle) Commit(rec float64, d Decision, sendErr error) {
	f.mu.Lock()
	f.commits = append(f.commits, struct {
		rec     float64
		d       Decision
		sendErr error
	}{rec, d, sendErr})
	f.mu.Unlock()
	f.advance()
}

// advance moves to the next scripted step; fetch failures skip Commit so
// the runner calls it via the sleep hook instead.
func (f *fakeCycle) advance() {
	f.mu.Lock()
	f.i++
	exhausted := f.i >= len(f.steps)
	f.mu.Unlock()
	if exhausted {
		select {
		case <-f.done:
		default:
			close(f.done)
		}
	}
}

// run drives the runner with instant sleeps until the script is done,
// returning the slept durations in order.
func run(t *testing.T, fc *fakeCycle, cad Cadence, opts Options, bus eventbus.Bus) []time.Duration {
	t.Helper()
	r, err := NewRunner[float64]("testfeed", fc, cad, opts, logx.Nop(), bus)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	r.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	var sleeps []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, d time.Duration) bool {
		mu.Lock()
		sleeps = append(sleeps, d)
		now = now.Add(d)
		mu.Unlock()
		// Fetch failures never reach Commit; count the step off here.
		if cur := fc.cur(); cur.fetchErr != nil {
			fc.advance()
		}
		select {
		case <-fc.done:
			return false
		default:
			return ctx.Err() == nil
		}
	}

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	select {
	case <-fc.done:
	case <-time.After(5 * time.Second):
		t.Fatal("script did not finish")
	}
	cancel()
	<-done
	return sleeps
}

func TestRunnerIntervalCadence(t *testing.T) {
	fc := newFakeCycle(
		step{rec: 6.0, decision: DecisionFirstRun},
		step{rec: 6.5, decision: DecisionInsignificant},
		step{rec: 9.0, decision: DecisionSignificant},
	)
	sleeps := run(t, fc, Interval(60*time.Second), Options{}, nil)

	if len(fc.commits) != 3 {
		t.Fatalf("commits = %d, want 3", len(fc.commits))
	}
	if fc.commits[0].d != DecisionFirstRun || fc.commits[0].sendErr != nil {
		t.Fatalf("first commit = %+v", fc.commits[0])
	}
	if fc.commits[1].d != DecisionInsignificant {
		t.Fatalf("second commit = %+v", fc.commits[1])
	}
	for i, d := range sleeps {
		if d != 60*time.Second {
			t.Fatalf("sleep[%d] = %v, want 60s", i, d)
		}
	}
}

func TestRunnerFaultBackoffIsFixed(t *testing.T) {
	boom := errors.New("upstream down")
	fc := newFakeCycle(
		step{fetchErr: boom},
		step{fetchErr: boom},
		step{rec: 6.0, decision: DecisionFirstRun},
	)
	sleeps := run(t, fc, Interval(60*time.Second), Options{FaultBackoff: 30 * time.Second}, nil)

	if len(sleeps) < 3 {
		t.Fatalf("sleeps = %v, want at least 3", sleeps)
	}
	// Two consecutive faults back off the same fixed amount, then the
	// successful cycle resumes the normal cadence.
	if sleeps[0] != 30*time.Second || sleeps[1] != 30*time.Second {
		t.Fatalf("fault sleeps = %v, want fixed 30s", sleeps[:2])
	}
	if sleeps[2] != 60*time.Second {
		t.Fatalf("post-recovery sleep = %v, want 60s", sleeps[2])
	}
	if len(fc.commits) != 1 {
		t.Fatalf("commits = %d, want 1 (faulted cycles must not commit)", len(fc.commits))
	}
}

func TestRunnerDispatchFailureStillCommits(t *testing.T) {
	sendBoom := errors.New("telegram 502")
	fc := newFakeCycle(
		step{rec: 6.0, decision: DecisionSignificant, sendErr: sendBoom},
	)
	run(t, fc, Interval(time.Minute), Options{}, nil)

	if len(fc.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(fc.commits))
	}
	if !errors.Is(fc.commits[0].sendErr, sendBoom) {
		t.Fatalf("commit sendErr = %v, want the dispatch error", fc.commits[0].sendErr)
	}
}

func TestRunnerPublishesFeedNotified(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	fc := newFakeCycle(
		step{rec: 6.0, decision: DecisionFirstRun},
		step{rec: 6.1, decision: DecisionInsignificant},
	)
	run(t, fc, Interval(time.Minute), Options{}, bus)

	select {
	case ev := <-ch:
		if ev.Type != eventbus.EventFeedNotified {
			t.Fatalf("event type = %q", ev.Type)
		}
		fn, ok := ev.Data.(FeedNotified)
		if !ok {
			t.Fatalf("payload type = %T", ev.Data)
		}
		if fn.Feed != "testfeed" || fn.Decision != DecisionFirstRun || !fn.OK {
			t.Fatalf("payload = %+v", fn)
		}
	case <-time.After(time.Second):
		t.Fatal("no feed.notified event")
	}

	// The insignificant cycle must not publish.
	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event: %+v", ev)
	default:
	}
}

func TestDecisionNotifies(t *testing.T) {
	cases := map[Decision]bool{
		DecisionFirstRun:      true,
		DecisionSignificant:   true,
		DecisionInsignificant: false,
		DecisionSuppressed:    false,
	}
	for d, want := range cases {
		if got := d.Notifies(); got != want {
			t.Errorf("%s.Notifies() = %v, want %v", d, got, want)
		}
	}
}

func TestDailyAtCadence(t *testing.T) {
	loc := time.UTC
	cad, err := DailyAt(8, 0, loc)
	if err != nil {
		t.Fatalf("DailyAt: %v", err)
	}
	now := time.Date(2026, 8, 30, 9, 30, 0, 0, loc)
	next := cad.Next(now)
	want := time.Date(2026, 8, 31, 8, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", now, next, want)
	}

	if _, err := DailyAt(24, 0, loc); err == nil {
		t.Fatal("DailyAt(24,0) accepted, want error")
	}
}

func TestHourlyCadence(t *testing.T) {
	cad := Hourly(time.UTC)
	now := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	next := cad.Next(now)
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", now, next, want)
	}
}
