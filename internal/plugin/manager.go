package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"pricebot/internal/baseline"
	"pricebot/internal/eventbus"
	"pricebot/internal/storage"
	kit "pricebot/internal/transport"
	logx "pricebot/pkg/logx"
)

type pluginEvent struct {
	Plugin string `json:"plugin"`
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason,omitempty"`
	Err    string `json:"err,omitempty"`
	TookMS int64  `json:"took_ms,omitempty"`
}

type Plugin interface {
	Name() string
	Init(ctx context.Context, deps PluginDeps) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Commands() []Command
}

type ConfigurablePlugin interface {
	OnConfigChange(ctx context.Context, raw json.RawMessage) error
}

// ConfigValidator is an optional plugin interface for transactional config
// reloads. ValidateConfig must not mutate plugin state.
type ConfigValidator interface {
	ValidateConfig(ctx context.Context, raw json.RawMessage) error
}

// MonitorProvider is an optional plugin interface. Plugins that run a price
// feed expose their runner snapshot through it so /status can report feed
// state without the plugin manager knowing feed internals.
type MonitorProvider interface {
	MonitorSnapshot() (MonitorSnapshot, bool)
}

type PluginDeps struct {
	Logger      logx.Logger
	Adapter     kit.Adapter
	Config      *ConfigManager
	Services    *Services
	Bus         eventbus.Bus
	Store       storage.Store
	Baseline    *baseline.Store
	OwnerUserID []int64
}

type PluginManager struct {
	mu sync.Mutex

	log  logx.Logger
	cfgm *ConfigManager
	deps PluginDeps
	reg  map[string]Plugin
	run  map[string]bool
	// inited tracks plugins that have successfully passed Init at least once.
	// We avoid re-calling Init on every enable/disable cycle to prevent
	// accidental double-initialization leaks (goroutines, resources, etc.).
	inited map[string]bool
	since  map[string]time.Time
	// last config blob hash per running plugin (used to avoid redundant
	// OnConfigChange calls)
	lastRawHash map[string]uint64
	// last hash of selected global config values that plugins may implicitly
	// depend on
	lastGlobalHash uint64
	lastErr        map[string]string

	// Internal, long-lived base context for all plugin contexts.
	// baseCtx is NOT the app ctx passed to StartAll/OnConfigUpdate (which may
	// be call-scoped). We "bind" app ctx only as a bridge: when appCtx is
	// done, baseCancel is called.
	baseCtx    context.Context
	baseCancel context.CancelFunc
	bound      bool

	// per-plugin run context (cancelled on disable/stop)
	pctx    map[string]context.Context
	pcancel map[string]context.CancelFunc

	cmdm *CommandManager
}

func NewPluginManager(log logx.Logger, cfgm *ConfigManager, deps PluginDeps, cmdm *CommandManager) *PluginManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &PluginManager{
		log:         log,
		cfgm:        cfgm,
		deps:        deps,
		reg:         map[string]Plugin{},
		run:         map[string]bool{},
		inited:      map[string]bool{},
		since:       map[string]time.Time{},
		lastRawHash: map[string]uint64{},
		lastErr:     map[string]string{},
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		pctx:        map[string]context.Context{},
		pcancel:     map[string]context.CancelFunc{},
		cmdm:        cmdm,
	}
}

func (pm *PluginManager) emit(typ string, data pluginEvent) {
	bus := pm.deps.Bus
	if bus == nil {
		return
	}
	bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// globalDepsHash captures a small, conservative subset of config that plugins
// might implicitly depend on. Keeping this small avoids poking unrelated
// plugins on common service-level config changes.
func globalDepsHash(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	type deps struct {
		Telegram struct {
			OwnerUserIDs []int64 `json:"owner_user_ids"`
			GroupLog     string  `json:"group_log"`
		} `json:"telegram"`
	}
	var d deps
	d.Telegram.OwnerUserIDs = cfg.Telegram.OwnerUserIDs
	d.Telegram.GroupLog = cfg.Telegram.GroupLog
	b, _ := json.Marshal(d)
	return fnvSum(b)
}

// BindContext binds appCtx to baseCtx via cancellation bridge. First non-nil
// bind wins. This avoids plugins dying because caller passed a short-lived
// ctx into StartAll/OnConfigUpdate.
func (pm *PluginManager) BindContext(appCtx context.Context) {
	pm.mu.Lock()
	if pm.bound || appCtx == nil {
		pm.mu.Unlock()
		return
	}
	pm.bound = true
	baseCancel := pm.baseCancel
	pm.mu.Unlock()

	go func() {
		<-appCtx.Done()
		baseCancel()
	}()
}

func (pm *PluginManager) Register(p ...Plugin) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, pl := range p {
		pm.reg[pl.Name()] = pl
	}
	pm.refreshRegistryLocked(pm.cfgm.Get())
}

func (pm *PluginManager) StartAll(ctx context.Context) error {
	pm.BindContext(ctx)
	return pm.reconcile(pm.cfgm.Get())
}

func (pm *PluginManager) StopAll(ctx context.Context, reason StopReason) {
	pm.mu.Lock()
	names := make([]string, 0, len(pm.reg))
	for name := range pm.reg {
		names = append(names, name)
	}
	pm.mu.Unlock()

	for _, name := range names {
		pm.stopOne(ctx, name, reason)
	}

	pm.mu.Lock()
	pm.refreshRegistryLocked(pm.cfgm.Get())
	pm.mu.Unlock()
}

func (pm *PluginManager) OnConfigUpdate(ctx context.Context, cfg *Config) {
	pm.BindContext(ctx)
	_ = pm.reconcile(cfg)
}

// ValidateConfig lets registered plugins veto a config before it is applied.
// Only plugins implementing ConfigValidator participate; others accept any raw
// payload and surface problems at OnConfigChange time instead.
func (pm *PluginManager) ValidateConfig(ctx context.Context, cfg *Config) error {
	pm.mu.Lock()
	type pair struct {
		name string
		v    ConfigValidator
		raw  json.RawMessage
	}
	pairs := make([]pair, 0, len(pm.reg))
	for name, p := range pm.reg {
		v, ok := p.(ConfigValidator)
		if !ok {
			continue
		}
		raw, present := cfg.Plugins[name]
		if !present || !raw.Enabled {
			continue
		}
		pairs = append(pairs, pair{name: name, v: v, raw: raw.Config})
	}
	pm.mu.Unlock()

	for _, pr := range pairs {
		if err := pr.v.ValidateConfig(ctx, pr.raw); err != nil {
			return fmt.Errorf("plugins.%s: %w", pr.name, err)
		}
	}
	return nil
}

// SetOwnerUserIDs updates the owner list in PluginDeps so plugins that rely
// on deps.OwnerUserID can observe changes after a hot-reload.
func (pm *PluginManager) SetOwnerUserIDs(ids []int64) {
	cp := append([]int64(nil), ids...)
	pm.mu.Lock()
	pm.deps.OwnerUserID = cp
	pm.mu.Unlock()
}

func (pm *PluginManager) stopOne(stopCtx context.Context, name string, reason StopReason) {
	pm.mu.Lock()
	p := pm.reg[name]
	running := pm.run[name]
	cancel := pm.pcancel[name]
	pm.mu.Unlock()

	if !running || p == nil {
		return
	}

	start := time.Now()
	pm.log.Debug("stopping plugin", logx.String("plugin", name), logx.String("reason", string(reason)))

	// cancel plugin context first (stop background loops promptly)
	if cancel != nil {
		cancel()
	}

	// call Stop with stopCtx, but do not allow a misbehaving plugin to block
	// shutdown forever.
	done := make(chan struct{})
	go func() {
		_ = pm.safeCall("plugin.stop."+name, func() error { return p.Stop(stopCtx) })
		close(done)
	}()
	select {
	case <-done:
		// ok
	case <-stopCtx.Done():
		pm.log.Warn("plugin stop timeout (continuing)", logx.String("plugin", name), logx.String("err", stopCtx.Err().Error()))
		pm.emit("plugin.stop_timeout", pluginEvent{Plugin: name, Reason: string(reason), Err: stopCtx.Err().Error()})
	}

	pm.mu.Lock()
	pm.run[name] = false
	delete(pm.pctx, name)
	delete(pm.pcancel, name)
	delete(pm.lastRawHash, name)
	delete(pm.since, name)
	pm.mu.Unlock()

	took := time.Since(start)
	pm.emit("plugin.stopped", pluginEvent{Plugin: name, Reason: string(reason), TookMS: took.Milliseconds()})
	if took >= 500*time.Millisecond {
		pm.log.Info("plugin stopped", logx.String("plugin", name), logx.String("reason", string(reason)), logx.Duration("took", took))
	} else {
		pm.log.Debug("plugin stopped", logx.String("plugin", name), logx.String("reason", string(reason)), logx.Duration("took", took))
	}
}

func (pm *PluginManager) reconcile(cfg *Config) error {
	// compute global dependency hash once per reconcile
	newGlobal := globalDepsHash(cfg)
	pm.mu.Lock()
	globalChanged := newGlobal != pm.lastGlobalHash
	pm.mu.Unlock()

	// snapshot desired actions without holding lock during plugin calls
	type op struct {
		name    string
		p       Plugin
		raw     PluginConfigRaw
		rawHash uint64
		enabled bool
		run     bool
	}
	pm.mu.Lock()
	ops := make([]op, 0, len(pm.reg))
	for name, p := range pm.reg {
		raw, ok := cfg.Plugins[name]
		enabled := ok && raw.Enabled
		running := pm.run[name]
		rh := rawConfigHash(raw.Config)
		ops = append(ops, op{name: name, p: p, raw: raw, rawHash: rh, enabled: enabled, run: running})
	}
	pm.mu.Unlock()

	const callTimeout = 10 * time.Second

	for _, o := range ops {
		switch {
		case o.enabled && !o.run:
			pm.log.Debug("plugin enable requested", logx.String("plugin", o.name))
			pm.emit("plugin.enable_requested", pluginEvent{Plugin: o.name})

			// start: create LONG-LIVED plugin ctx from internal base ctx
			pctx, cancel := context.WithCancel(pm.baseCtx)
			deps := pm.deps

			// init (bounded by timeout ctx)
			pm.mu.Lock()
			needInit := !pm.inited[o.name]
			pm.mu.Unlock()
			if needInit {
				ictx, icancel := context.WithTimeout(pctx, callTimeout)
				err := pm.safeCall("plugin.init."+o.name, func() error { return o.p.Init(ictx, deps) })
				icancel()
				if err != nil {
					pm.setLastErr(o.name, err)
					pm.log.Error("plugin init failed", logx.String("plugin", o.name), logx.Any("err", err))
					pm.emit("plugin.init_failed", pluginEvent{Plugin: o.name, Err: err.Error()})
					cancel()
					continue
				}
				pm.mu.Lock()
				pm.inited[o.name] = true
				pm.mu.Unlock()
			} else {
				pm.log.Debug("plugin already initialized; skipping Init", logx.String("plugin", o.name))
			}

			// apply config before Start (bounded by timeout ctx)
			if cp, ok := o.p.(ConfigurablePlugin); ok {
				cctx, ccancel := context.WithTimeout(pctx, callTimeout)
				err := pm.safeCall("plugin.config."+o.name, func() error { return cp.OnConfigChange(cctx, o.raw.Config) })
				ccancel()
				if err != nil {
					pm.setLastErr(o.name, err)
					pm.log.Error("plugin config failed", logx.String("plugin", o.name), logx.Any("err", err))
					pm.emit("plugin.config_failed", pluginEvent{Plugin: o.name, Err: err.Error()})
					cancel()
					continue
				}
				pm.emit("plugin.config_applied", pluginEvent{Plugin: o.name})
			}

			// Start receives pctx (long-lived); the deadline is enforced
			// externally.
			if err := pm.startWithTimeout(o.name, o.p, pctx, cancel, callTimeout); err != nil {
				pm.setLastErr(o.name, err)
				pm.log.Error("plugin start failed", logx.String("plugin", o.name), logx.Any("err", err))
				pm.emit("plugin.start_failed", pluginEvent{Plugin: o.name, Err: err.Error()})
				cancel()
				continue
			}

			pm.mu.Lock()
			pm.run[o.name] = true
			pm.since[o.name] = time.Now()
			pm.pctx[o.name] = pctx
			pm.pcancel[o.name] = cancel
			pm.lastRawHash[o.name] = o.rawHash
			delete(pm.lastErr, o.name)
			pm.mu.Unlock()

			pm.log.Info("plugin started", logx.String("plugin", o.name))
			pm.emit("plugin.started", pluginEvent{Plugin: o.name})

		case !o.enabled && o.run:
			pm.log.Debug("plugin disable requested", logx.String("plugin", o.name))
			pm.emit("plugin.disable_requested", pluginEvent{Plugin: o.name})
			stopCtx, cancel := context.WithTimeout(pm.baseCtx, callTimeout)
			pm.stopOne(stopCtx, o.name, StopPluginDisable)
			cancel()

		case o.enabled && o.run:
			cp, ok := o.p.(ConfigurablePlugin)
			if !ok {
				break
			}
			newHash := o.rawHash
			pm.mu.Lock()
			oldHash := pm.lastRawHash[o.name]
			pctx := pm.pctx[o.name]
			pm.mu.Unlock()
			// If the raw config blob didn't change and global deps didn't
			// change, skip OnConfigChange. This prevents thrashing schedules
			// and background loops on unrelated config reloads.
			if newHash == oldHash && !globalChanged {
				pm.log.Debug("plugin config unchanged; skipping", logx.String("plugin", o.name))
				break
			}
			if newHash == oldHash && globalChanged {
				pm.log.Debug("plugin config unchanged, but global deps changed; reapplying", logx.String("plugin", o.name))
			}
			if pctx == nil {
				pctx = pm.baseCtx
			}
			cctx, ccancel := context.WithTimeout(pctx, callTimeout)
			err := pm.safeCall("plugin.config."+o.name, func() error { return cp.OnConfigChange(cctx, o.raw.Config) })
			ccancel()
			if err != nil {
				pm.setLastErr(o.name, err)
				pm.log.Error("plugin config apply failed; stopping plugin", logx.String("plugin", o.name), logx.Any("err", err))
				pm.emit("plugin.config_failed", pluginEvent{Plugin: o.name, Err: err.Error()})
				stopCtx, cancel := context.WithTimeout(pm.baseCtx, callTimeout)
				pm.stopOne(stopCtx, o.name, StopConfigReload)
				cancel()
				break
			}
			pm.emit("plugin.config_applied", pluginEvent{Plugin: o.name})
			pm.mu.Lock()
			pm.lastRawHash[o.name] = newHash
			delete(pm.lastErr, o.name)
			pm.mu.Unlock()
		}
	}

	pm.mu.Lock()
	pm.lastGlobalHash = newGlobal
	pm.refreshRegistryLocked(cfg)
	pm.mu.Unlock()
	return nil
}

func (pm *PluginManager) setLastErr(name string, err error) {
	if err == nil {
		return
	}
	pm.mu.Lock()
	pm.lastErr[name] = err.Error()
	pm.mu.Unlock()
}

// startWithTimeout calls Start(pctx) but enforces a deadline. If it times
// out, plugin ctx is cancelled.
func (pm *PluginManager) startWithTimeout(name string, p Plugin, pctx context.Context, cancel context.CancelFunc, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- pm.safeCall("plugin.start."+name, func() error { return p.Start(pctx) })
	}()

	if timeout <= 0 {
		return <-done
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return err
	case <-t.C:
		// cancel plugin ctx and wait small grace for Start() to return
		cancel()

		grace := time.NewTimer(2 * time.Second)
		defer grace.Stop()
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("start timeout (%s): %w", timeout, err)
			}
			return fmt.Errorf("start timeout (%s)", timeout)
		case <-grace.C:
			return fmt.Errorf("start timeout (%s): start did not return after cancel", timeout)
		}
	}
}

func (pm *PluginManager) safeCall(label string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pm.log.Error("panic in plugin call",
				logx.String("call", label),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("panic in %s: %v", label, r)
		}
	}()
	return fn()
}

func (pm *PluginManager) refreshRegistryLocked(cfg *Config) {
	cmds := []Command{}
	for name, p := range pm.reg {
		if !pm.run[name] {
			continue
		}
		raw, ok := cfg.Plugins[name]
		if !ok || !raw.Enabled {
			continue
		}
		pto, has := pluginCommandTimeout(cfg, name)

		for _, c := range pm.safeCommands(name, p) {
			c.PluginName = name
			// If plugin timeout set and command doesn't override, apply it.
			if has && c.Timeout <= 0 {
				c.Timeout = pto
			}
			cmds = append(cmds, c)
		}
	}

	pm.cmdm.SetRegistry(cmds)
}

func (pm *PluginManager) safeCommands(name string, p Plugin) (out []Command) {
	if p == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			pm.log.Error("panic in plugin Commands()",
				logx.String("plugin", name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			out = nil
		}
	}()
	return p.Commands()
}

func pluginCommandTimeout(cfg *Config, plugin string) (time.Duration, bool) {
	raw, ok := cfg.Plugins[plugin]
	if !ok || len(raw.Config) == 0 {
		return 0, false
	}
	// Standard schema: plugin.config.timeouts.command
	type wrap struct {
		Timeouts struct {
			Command string `json:"command"`
		} `json:"timeouts"`
	}
	var w wrap
	if err := json.Unmarshal(raw.Config, &w); err != nil {
		return 0, false
	}
	if w.Timeouts.Command == "" {
		return 0, false
	}
	d, err := time.ParseDuration(w.Timeouts.Command)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// Snapshot implements PluginsPort.
func (pm *PluginManager) Snapshot() PluginsSnapshot {
	cfg := pm.cfgm.Get()
	pm.mu.Lock()
	names := make([]string, 0, len(pm.reg))
	for name := range pm.reg {
		names = append(names, name)
	}
	sort.Strings(names)
	out := PluginsSnapshot{Time: time.Now(), Plugins: make([]PluginStatus, 0, len(names))}
	for _, name := range names {
		running := pm.run[name]
		enabled := false
		hasCfg := false
		if cfg != nil && cfg.Plugins != nil {
			if r, ok := cfg.Plugins[name]; ok {
				enabled = r.Enabled
				hasCfg = true
			}
		}
		out.Plugins = append(out.Plugins, PluginStatus{
			Name:      name,
			Enabled:   enabled,
			Running:   running,
			HasConfig: hasCfg,
			Since:     pm.since[name],
			LastError: pm.lastErr[name],
		})
	}
	pm.mu.Unlock()
	return out
}

// Snapshots implements MonitorsPort across all running plugins that expose
// a feed runner.
func (pm *PluginManager) Snapshots() []MonitorSnapshot {
	pm.mu.Lock()
	ps := make([]Plugin, 0, len(pm.reg))
	for name, p := range pm.reg {
		if pm.run[name] {
			ps = append(ps, p)
		}
	}
	pm.mu.Unlock()

	out := make([]MonitorSnapshot, 0, len(ps))
	for _, p := range ps {
		if mp, ok := p.(MonitorProvider); ok {
			if snap, ok := mp.MonitorSnapshot(); ok {
				out = append(out, snap)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Feed < out[j].Feed })
	return out
}
