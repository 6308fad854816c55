package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"pricebot/internal/eventbus"
	rtsup "pricebot/internal/runtime/supervisor"
	logx "pricebot/pkg/logx"
)

// Config controls the scheduler service.
type Config struct {
	Enabled        bool
	Workers        int           // execution pool size (default 2)
	QueueSize      int           // pending trigger queue (default 64)
	DefaultTimeout time.Duration // applied when a schedule has no timeout
	Timezone       string        // IANA TZ, e.g. "Asia/Shanghai"
}

// OverlapPolicy decides what happens when a schedule fires while a
// previous run is still in flight.
type OverlapPolicy int

const (
	OverlapSkipIfRunning OverlapPolicy = iota
	OverlapAllow
)

var (
	ErrOverlapSkip = errors.New("previous run still in flight")
	ErrQueueFull   = errors.New("scheduler queue full")
	ErrStopped     = errors.New("scheduler stopped")
)

type scheduleDef struct {
	id            string
	name          string
	spec          string // cron spec or @every
	timeout       time.Duration
	overlap       OverlapPolicy
	job           func(ctx context.Context) error
	entryID       cron.EntryID
	startupSpread time.Duration // initial random delay for @every schedules
	running       *atomic.Bool
}

type execTask struct {
	name    string
	timeout time.Duration
	job     func(ctx context.Context) error
	running *atomic.Bool
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	queue   chan execTask
	sup     *rtsup.Supervisor
	dropped atomic.Uint64

	// Enqueue error throttling: key is schedule name.
	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time
}

type ScheduleInfo struct {
	ID      string
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}

type Snapshot struct {
	Enabled  bool
	Timezone string

	Workers   int
	QueueLen  int
	QueueCap  int
	Dropped   uint64
	Schedules []ScheduleInfo
}
