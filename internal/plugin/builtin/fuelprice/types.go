package fuelprice

import (
	"sync"
	"time"

	"pricebot/internal/monitor"
	core "pricebot/internal/plugin"
)

// Config defines plugin configuration.
type Config struct {
	// APIURL is the per-region price endpoint; the region name is sent
	// as a query parameter.
	APIURL string `json:"api_url"`

	// Regions lists the regions the daily monitor watches. Commands can
	// query any region regardless of this list.
	Regions []string `json:"regions"`

	// NotifyAt is the daily wall-clock send time, "HH:MM" in the
	// scheduler timezone.
	NotifyAt string `json:"notify_at"`

	FaultBackoffSeconds int `json:"fault_backoff_seconds"`
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	faultBackoff time.Duration `json:"-"`
	fetchTimeout time.Duration `json:"-"`
	notifyHH     int           `json:"-"`
	notifyMM     int           `json:"-"`
}

// gradeKeys is the fixed ordered set of monitored fuel grades. Values
// are compared as opaque strings so "-" and missing behave uniformly.
var gradeKeys = []string{"0#", "92#", "95#", "98#"}

// regionPrices is one region's fetched price block.
type regionPrices struct {
	Region     string
	Grades     map[string]string
	NextUpdate string
}

// record is the result of one monitor fetch over all watched regions.
type record struct {
	Regions   []regionPrices
	FetchedAt time.Time
}

// regionSnapshot is the persisted per-region baseline entry.
type regionSnapshot struct {
	Grades     map[string]string `json:"grades"`
	NextUpdate string            `json:"next_update"`
}

// baselineDoc maps region name to its last notified snapshot.
type baselineDoc map[string]regionSnapshot

const (
	defaultAPIURL              = "https://apis.tianapi.com/oilprice/index"
	defaultNotifyAt            = "08:00"
	defaultRegion              = "广东"
	// Against a daily cadence a failed morning fetch retries hourly.
	defaultFaultBackoffSeconds = 3600
	defaultFetchTimeoutSeconds = 10

	baselineKey = "fuelprice"
)

// Plugin monitors regional fuel prices and answers price queries plus a
// trip cost calculator.
type Plugin struct {
	core.PluginBase

	mu  sync.RWMutex
	cfg Config

	baseMu      sync.Mutex
	base        baselineDoc
	startupSent bool

	fetcher *fetcher
	runner  *monitor.Runner[record]
}
