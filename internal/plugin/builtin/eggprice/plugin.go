// Package eggprice monitors egg wholesale quotes hourly but notifies at
// most once per calendar day, surviving restarts via a persisted date.
package eggprice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pricebot/internal/baseline"
	"pricebot/internal/monitor"
	core "pricebot/internal/plugin"
	kit "pricebot/internal/transport"
	logx "pricebot/pkg/logx"
)

func New() *Plugin {
	return &Plugin{now: time.Now}
}

func (p *Plugin) Name() string {
	return "eggprice"
}

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	p.InitBase(deps, p.Name())
	if p.now == nil {
		p.now = time.Now
	}

	if deps.Baseline == nil {
		return fmt.Errorf("baseline store is required")
	}

	var doc baselineDoc
	err := deps.Baseline.Load(baselineKey, &doc)
	if err != nil && !errors.Is(err, baseline.ErrNotExist) {
		return fmt.Errorf("load baseline: %w", err)
	}
	p.baseMu.Lock()
	p.base = doc
	p.baseMu.Unlock()

	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)

	cfg := p.getConfig()
	p.fetcher = newFetcher(cfg.APIURL, cfg.fetchTimeout)

	r, err := monitor.NewRunner[record](p.Name(), p, monitor.Hourly(p.Location()), monitor.Options{
		FaultBackoff: cfg.faultBackoff,
	}, p.Log, p.Deps.Bus)
	if err != nil {
		return err
	}
	p.runner = r
	p.Runner.Go0("monitor", r.Run)
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error {
	err := p.StopBase(ctx)
	p.runner = nil
	return err
}

// OnConfigChange handles configuration updates.
func (p *Plugin) OnConfigChange(ctx context.Context, raw json.RawMessage) error {
	var c Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
	}
	c = withDefaults(c)

	p.mu.Lock()
	old := p.cfg
	p.cfg = c
	running := p.runner != nil
	p.mu.Unlock()

	// The region filter is read on every Fetch and applies live. The
	// fetcher and hourly loop are built in Start, so endpoint and
	// timeouts only take effect on a plugin restart.
	if running && runtimeSettingsChanged(old, c) {
		p.Log.Warn("api_url/timeout changed; plugin restart required to take effect")
	}
	return nil
}

func runtimeSettingsChanged(old, c Config) bool {
	return old.APIURL != c.APIURL ||
		old.FaultBackoffSeconds != c.FaultBackoffSeconds ||
		old.FetchTimeoutSeconds != c.FetchTimeoutSeconds
}

func withDefaults(c Config) Config {
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.FaultBackoffSeconds <= 0 {
		c.FaultBackoffSeconds = defaultFaultBackoffSeconds
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	c.faultBackoff = time.Duration(c.FaultBackoffSeconds) * time.Second
	c.fetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	return c
}

func (p *Plugin) getConfig() Config {
	p.mu.RLock()
	c := p.cfg
	p.mu.RUnlock()
	return withDefaults(c)
}

// MonitorSnapshot exposes the runner state for /status.
func (p *Plugin) MonitorSnapshot() (core.MonitorSnapshot, bool) {
	r := p.runner
	if r == nil {
		return core.MonitorSnapshot{}, false
	}
	return r.Snapshot(), true
}

// today renders the current calendar date in the scheduler timezone.
func (p *Plugin) today() string {
	return p.now().In(p.Location()).Format("2006-01-02")
}

// ---- monitor.Cycle ----

func (p *Plugin) Fetch(ctx context.Context) (record, error) {
	return p.fetcher.fetch(ctx, p.getConfig().Region, "")
}

// Evaluate applies the one-per-day gate. The guard is re-checked on
// every hourly wake, so a restart mid-day stays suppressed.
func (p *Plugin) Evaluate(rec record) monitor.Decision {
	today := p.today()

	p.baseMu.Lock()
	last := p.base.LastEggSentDate
	p.baseMu.Unlock()

	if last == nil {
		return monitor.DecisionFirstRun
	}
	if *last == today {
		return monitor.DecisionSuppressed
	}
	return monitor.DecisionSignificant
}

func (p *Plugin) Dispatch(ctx context.Context, rec record, d monitor.Decision) (string, error) {
	text := formatQuotes(rec, p.getConfig().Region)
	err := p.Send(ctx, kit.Notification{
		Channel:  "telegram",
		Priority: 5,
		Target:   p.NotifyTarget(),
		Text:     text,
	})
	return text, err
}

// Commit stamps the sent date only after a confirmed send; a failed
// delivery leaves the gate open for the next hourly wake.
func (p *Plugin) Commit(rec record, d monitor.Decision, sendErr error) {
	if !d.Notifies() || sendErr != nil {
		return
	}
	today := p.today()

	p.baseMu.Lock()
	p.base.LastEggSentDate = &today
	doc := p.base
	p.baseMu.Unlock()

	if err := p.Deps.Baseline.Save(baselineKey, doc); err != nil {
		p.Log.Warn("baseline save failed", logx.Err(err))
	}
}
