package goldratio

import (
	"sync"
	"time"

	"pricebot/internal/monitor"
	core "pricebot/internal/plugin"
)

// Config defines plugin configuration.
type Config struct {
	// URL is the DD373 listing page polled for gold sale offers.
	URL string `json:"url"`

	// IntervalSeconds is the polling cadence of the monitor loop.
	IntervalSeconds int `json:"interval_seconds"`

	// Threshold is the minimum absolute change of the average ratio
	// (in 万金币 per 元) that triggers a notification. The comparison
	// is inclusive.
	Threshold float64 `json:"threshold"`

	// FaultBackoffSeconds is the fixed retry delay after a failed fetch.
	FaultBackoffSeconds int `json:"fault_backoff_seconds"`

	// MaxListings caps how many offers feed into the average.
	MaxListings int `json:"max_listings"`

	// FetchTimeoutSeconds bounds one upstream request.
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	interval     time.Duration `json:"-"`
	faultBackoff time.Duration `json:"-"`
	fetchTimeout time.Duration `json:"-"`
}

// baselineDoc is the persisted notification baseline. LastSentAvgRatio
// is nil until the first confirmed send.
type baselineDoc struct {
	LastSentAvgRatio *float64 `json:"last_sent_avg_ratio"`
	LastAvgRatio     float64  `json:"last_avg_ratio"`
}

// listing is one parsed sale offer.
type listing struct {
	Title     string
	RatioText string
	Ratio     float64
}

// record is the result of one successful fetch.
type record struct {
	Listings  []listing
	Average   float64
	FetchedAt time.Time
}

const (
	defaultURL = "https://www.dd373.com/s-rbg22w-091pt7-091pt7-0-0-0-42hcun-0-0-0-0-0-1-0-5-0.html"

	defaultIntervalSeconds     = 60
	defaultThreshold           = 2.0
	defaultFaultBackoffSeconds = 30
	defaultMaxListings         = 5
	defaultFetchTimeoutSeconds = 10

	baselineKey = "goldratio"
)

// Plugin monitors the DNF gold/CNY exchange ratio.
type Plugin struct {
	core.PluginBase

	mu  sync.RWMutex
	cfg Config

	baseMu sync.Mutex
	base   baselineDoc

	fetcher *fetcher
	runner  *monitor.Runner[record]
}
