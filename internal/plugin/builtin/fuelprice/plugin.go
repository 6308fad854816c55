// Package fuelprice monitors regional fuel prices and sends a daily
// price block, plus on-demand queries and a trip cost calculator.
package fuelprice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
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
	return "fuelprice"
}

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	p.InitBase(deps, p.Name())

	if deps.Baseline == nil {
		return fmt.Errorf("baseline store is required")
	}

	doc := baselineDoc{}
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

	// The runner fires its first cycle immediately, which doubles as
	// the unconditional startup notification.
	cad, err := monitor.DailyAt(cfg.notifyHH, cfg.notifyMM, p.Location())
	if err != nil {
		return err
	}
	r, err := monitor.NewRunner[record](p.Name(), p, cad, monitor.Options{
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
	if _, _, err := parseHHMM(c.NotifyAt); err != nil {
		return fmt.Errorf("fuelprice.notify_at: %w", err)
	}

	p.mu.Lock()
	old := p.cfg
	p.cfg = c
	running := p.runner != nil
	p.mu.Unlock()

	// Regions are read on every Fetch and apply live. The fetcher and
	// the daily cadence are built in Start, so endpoint, notify time
	// and timeouts only take effect on a plugin restart.
	if running && runtimeSettingsChanged(old, c) {
		p.Log.Warn("api_url/notify_at/timeout changed; plugin restart required to take effect")
	}
	return nil
}

func runtimeSettingsChanged(old, c Config) bool {
	return old.APIURL != c.APIURL ||
		old.NotifyAt != c.NotifyAt ||
		old.FaultBackoffSeconds != c.FaultBackoffSeconds ||
		old.FetchTimeoutSeconds != c.FetchTimeoutSeconds
}

func withDefaults(c Config) Config {
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if len(c.Regions) == 0 {
		c.Regions = []string{defaultRegion}
	}
	if c.NotifyAt == "" {
		c.NotifyAt = defaultNotifyAt
	}
	if c.FaultBackoffSeconds <= 0 {
		c.FaultBackoffSeconds = defaultFaultBackoffSeconds
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	c.faultBackoff = time.Duration(c.FaultBackoffSeconds) * time.Second
	c.fetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	if hh, mm, err := parseHHMM(c.NotifyAt); err == nil {
		c.notifyHH, c.notifyMM = hh, mm
	} else {
		c.notifyHH, c.notifyMM = 8, 0
	}
	return c
}

func parseHHMM(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return hh, mm, nil
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

// ---- monitor.Cycle ----

func (p *Plugin) Fetch(ctx context.Context) (record, error) {
	return p.fetcher.fetchAll(ctx, p.getConfig().Regions)
}

// Evaluate compares each region's grade strings against the cached
// snapshot. The process's first cycle always notifies.
func (p *Plugin) Evaluate(rec record) monitor.Decision {
	p.baseMu.Lock()
	defer p.baseMu.Unlock()

	if !p.startupSent {
		return monitor.DecisionFirstRun
	}
	for _, rp := range rec.Regions {
		snap, ok := p.base[rp.Region]
		if !ok {
			return monitor.DecisionFirstRun
		}
		if gradesDiffer(rp.Grades, snap.Grades) {
			return monitor.DecisionSignificant
		}
	}
	return monitor.DecisionInsignificant
}

func gradesDiffer(a, b map[string]string) bool {
	for _, k := range gradeKeys {
		if gradeOf(a, k) != gradeOf(b, k) {
			return true
		}
	}
	return false
}

func gradeOf(m map[string]string, k string) string {
	if m == nil {
		return "-"
	}
	v, ok := m[k]
	if !ok || strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func (p *Plugin) Dispatch(ctx context.Context, rec record, d monitor.Decision) (string, error) {
	text := formatDaily(rec)
	err := p.Send(ctx, kit.Notification{
		Channel:  "telegram",
		Priority: 6,
		Target:   p.NotifyTarget(),
		Text:     text,
	})
	return text, err
}

// Commit advances per-region snapshots only after a confirmed send, so
// a failed delivery is retried by the next daily comparison.
func (p *Plugin) Commit(rec record, d monitor.Decision, sendErr error) {
	if !d.Notifies() || sendErr != nil {
		return
	}

	p.baseMu.Lock()
	p.startupSent = true
	if p.base == nil {
		p.base = baselineDoc{}
	}
	for _, rp := range rec.Regions {
		p.base[rp.Region] = regionSnapshot{
			Grades:     rp.Grades,
			NextUpdate: rp.NextUpdate,
		}
	}
	doc := make(baselineDoc, len(p.base))
	for k, v := range p.base {
		doc[k] = v
	}
	p.baseMu.Unlock()

	if err := p.Deps.Baseline.Save(baselineKey, doc); err != nil {
		p.Log.Warn("baseline save failed", logx.Err(err))
	}
}
