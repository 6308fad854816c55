package eggprice

import (
	"sync"
	"time"

	"pricebot/internal/monitor"
	core "pricebot/internal/plugin"
)

// Config defines plugin configuration.
type Config struct {
	// APIURL is the searchable quote-list endpoint; location and date
	// go out as query parameters.
	APIURL string `json:"api_url"`

	// Region is the location filter the hourly monitor queries with.
	// Empty means no filter (nationwide quotes).
	Region string `json:"region"`

	FaultBackoffSeconds int `json:"fault_backoff_seconds"`
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	faultBackoff time.Duration `json:"-"`
	fetchTimeout time.Duration `json:"-"`
}

// item is one deduplicated quote.
type item struct {
	Title      string
	Price      string
	Unit       string
	UpdateTime string
	PrevPrice  string
}

// record is the result of one successful fetch.
type record struct {
	Items     []item
	FetchedAt time.Time
}

// baselineDoc persists the one-notification-per-day gate.
type baselineDoc struct {
	LastEggSentDate *string `json:"last_egg_sent_date"`
}

const (
	defaultAPIURL              = "https://apis.tianapi.com/eggprice/index"
	// The upstream is polled hourly; a fault (including an empty quote
	// list) retries on the same scale rather than hammering the API.
	defaultFaultBackoffSeconds = 3600
	defaultFetchTimeoutSeconds = 10

	// maxItems caps the quote list at the first canonical entries in
	// upstream order.
	maxItems = 10

	baselineKey = "eggprice"
)

// Plugin monitors egg wholesale quotes with an at-most-once-per-day
// notification gate.
type Plugin struct {
	core.PluginBase

	mu  sync.RWMutex
	cfg Config

	baseMu sync.Mutex
	base   baselineDoc

	fetcher *fetcher
	runner  *monitor.Runner[record]

	// now is replaceable in tests for the calendar-date gate.
	now func() time.Time
}
