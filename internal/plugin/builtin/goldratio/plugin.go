// Package goldratio monitors the DNF gold/CNY exchange ratio on DD373
// and notifies when the averaged listing ratio moves past a threshold.
package goldratio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"pricebot/internal/baseline"
	"pricebot/internal/monitor"
	core "pricebot/internal/plugin"
	kit "pricebot/internal/transport"
	logx "pricebot/pkg/logx"
)

func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Name() string {
	return "goldratio"
}

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	p.InitBase(deps, p.Name())

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
	p.fetcher = newFetcher(cfg.URL, cfg.fetchTimeout, cfg.MaxListings)

	r, err := monitor.NewRunner[record](p.Name(), p, monitor.Interval(cfg.interval), monitor.Options{
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
	if c.Threshold < 0 {
		return fmt.Errorf("goldratio.threshold must not be negative")
	}

	p.mu.Lock()
	old := p.cfg
	p.cfg = c
	running := p.runner != nil
	p.mu.Unlock()

	// The threshold is read on every Evaluate and applies live. The
	// fetcher and monitor loop are built in Start, so their settings
	// only take effect on a plugin restart.
	if running && runtimeSettingsChanged(old, c) {
		p.Log.Warn("url/interval/timeout changed; plugin restart required to take effect")
	}
	return nil
}

func runtimeSettingsChanged(old, c Config) bool {
	return old.URL != c.URL ||
		old.IntervalSeconds != c.IntervalSeconds ||
		old.FaultBackoffSeconds != c.FaultBackoffSeconds ||
		old.FetchTimeoutSeconds != c.FetchTimeoutSeconds ||
		old.MaxListings != c.MaxListings
}

func withDefaults(c Config) Config {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = defaultIntervalSeconds
	}
	if c.Threshold == 0 {
		c.Threshold = defaultThreshold
	}
	if c.FaultBackoffSeconds <= 0 {
		c.FaultBackoffSeconds = defaultFaultBackoffSeconds
	}
	if c.MaxListings <= 0 || c.MaxListings > 20 {
		c.MaxListings = defaultMaxListings
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	c.interval = time.Duration(c.IntervalSeconds) * time.Second
	c.faultBackoff = time.Duration(c.FaultBackoffSeconds) * time.Second
	c.fetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	return c
}

// getConfig returns the current config with defaults applied, so the
// monitor and commands stay usable even before a config load.
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

// ---- monitor.Cycle ----

func (p *Plugin) Fetch(ctx context.Context) (record, error) {
	return p.fetcher.fetch(ctx)
}

func (p *Plugin) Evaluate(rec record) monitor.Decision {
	cfg := p.getConfig()

	p.baseMu.Lock()
	last := p.base.LastSentAvgRatio
	p.baseMu.Unlock()

	if last == nil {
		return monitor.DecisionFirstRun
	}
	if math.Abs(rec.Average-*last) >= cfg.Threshold {
		return monitor.DecisionSignificant
	}
	return monitor.DecisionInsignificant
}

func (p *Plugin) Dispatch(ctx context.Context, rec record, d monitor.Decision) (string, error) {
	p.baseMu.Lock()
	last := p.base.LastSentAvgRatio
	p.baseMu.Unlock()

	text := formatAlert(rec, last)
	err := p.Send(ctx, kit.Notification{
		Channel:  "telegram",
		Priority: 7,
		Target:   p.NotifyTarget(),
		Text:     text,
	})
	return text, err
}

// Commit advances the observed average on every successful fetch; the
// notified baseline moves only after a confirmed send.
func (p *Plugin) Commit(rec record, d monitor.Decision, sendErr error) {
	p.baseMu.Lock()
	p.base.LastAvgRatio = rec.Average
	if d.Notifies() && sendErr == nil {
		avg := rec.Average
		p.base.LastSentAvgRatio = &avg
	}
	doc := p.base
	p.baseMu.Unlock()

	if err := p.Deps.Baseline.Save(baselineKey, doc); err != nil {
		p.Log.Warn("baseline save failed", logx.Err(err))
	}
}
