package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pricebot/internal/baseline"
	"pricebot/internal/eventbus"
	"pricebot/internal/monitor"
	"pricebot/internal/notifier"
	"pricebot/internal/storage"
	"pricebot/internal/task/scheduler"
	kit "pricebot/internal/transport"
	telegram "pricebot/internal/transport/telegram/adapter"
	logx "pricebot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	base  *baseline.Store

	adapter kit.Adapter

	sched *scheduler.Service
	notif *notifier.Service

	cmdm *CommandManager
	pm   *PluginManager

	serv *Services

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// Adapter config mapping
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := parseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Logging service mapping
	// Important: logx.New() calls Apply() immediately. If Telegram logging is enabled but the target
	// chat isn't configured yet, Apply() will emit a warning. To avoid a false-positive warning,
	// we bootstrap with Telegram logging disabled, set the target, then Apply() the final config.
	baseLogCfg := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    false, // set target first, then enable via Apply()
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))

	if chatID := logChatID(cfg); chatID != 0 {
		logSvc.SetTelegramTarget(chatID)
	}

	// Apply final logging config (including Telegram enable flag).
	finalLogCfg := baseLogCfg
	finalLogCfg.Telegram.Enabled = cfg.Logging.Telegram.Enabled
	logSvc.Apply(finalLogCfg)

	bus := eventbus.New()

	// Storage (optional; journal + dedup persistence)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	// Baseline store: per-feed notification state, one JSON doc per feed.
	stateDir := strings.TrimSpace(cfg.StateDir)
	if stateDir == "" {
		stateDir = "./state"
	}
	base, err := baseline.NewStore(stateDir, log.With(logx.String("comp", "baseline")))
	if err != nil {
		return nil, err
	}

	schedSvc := scheduler.New(scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: cfg.Scheduler.Timezone,
	}, log.With(logx.String("comp", "scheduler")), bus)

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), bus, store)

	serv := &Services{
		Scheduler:          schedSvc,
		Notifier:           notifSvc,
		RuntimeSupervisors: NewSupervisorRegistry(),
	}

	cmdm := NewCommandManager(log.With(logx.String("comp", "commands")),
		ad, cfgm, serv, cfg.Telegram.OwnerUserIDs)

	pm := NewPluginManager(log.With(logx.String("comp", "plugins")),
		cfgm, PluginDeps{
			Logger:      log,
			Adapter:     ad,
			Config:      cfgm,
			Services:    serv,
			Bus:         bus,
			Store:       store,
			Baseline:    base,
			OwnerUserID: cfg.Telegram.OwnerUserIDs,
		}, cmdm)
	// Expose plugin and monitor runtime state for operational commands.
	serv.Plugins = pm
	serv.Monitors = pm

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		base:    base,
		adapter: ad,
		sched:   schedSvc,
		notif:   notifSvc,
		cmdm:    cmdm,
		pm:      pm,
		serv:    serv,
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Plugins() *PluginManager { return a.pm }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))
	if a.serv != nil {
		a.serv.AppSupervisor = a.sup
		if a.serv.RuntimeSupervisors == nil {
			a.serv.RuntimeSupervisors = NewSupervisorRegistry()
		}
	}
	// transactional config reload: validate before commit/publish
	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		a.cfgm.SetValidator(func(c context.Context, cfg *Config) error {
			if _, err := parseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
				return err
			}
			if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
				if _, err := time.LoadLocation(tz); err != nil {
					return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
				}
			}
			// notifier validation (parse durations + basic bounds)
			if _, err := mapNotifierConfig(cfg); err != nil {
				return err
			}
			// storage validation
			if _, _, err := mapStorageConfig(cfg); err != nil {
				return err
			}
			// per-plugin validation
			if a.pm != nil {
				return a.pm.ValidateConfig(c, cfg)
			}
			return nil
		})
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	// Expose adapter supervisor for operational visibility.
	if a.serv != nil {
		if sp, ok := a.adapter.(interface{ Supervisor() *Supervisor }); ok {
			if sup := sp.Supervisor(); sup != nil {
				a.serv.RuntimeSupervisors.Set("telegram.adapter", sup)
			}
		}
	}

	if a.notif != nil && a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
		if a.serv != nil {
			if sup := a.notif.Supervisor(); sup != nil {
				a.serv.RuntimeSupervisors.Set("notifier", sup)
			}
		}
	}
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	}

	// Daily journal compaction; drivers where this is a no-op return nil.
	if a.store != nil && a.sched.Enabled() {
		st := a.store
		if _, err := a.sched.AddDaily("storage:compact", "04:30", 2*time.Minute, func(c context.Context) error {
			return st.Compact(c)
		}); err != nil {
			a.log.Warn("failed to schedule storage compaction", logx.Err(err))
		}
	}

	if err := a.pm.StartAll(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	a.startJournal()

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		// Track last applied config to generate a safe diff summary for logx.
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// startJournal subscribes to feed notification events and records every
// dispatch attempt in durable storage.
func (a *App) startJournal() {
	if a.bus == nil || a.store == nil {
		return
	}
	events, unsub := a.bus.Subscribe(128)
	st := a.store
	a.sup.Go0("journal", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if e.Type != eventbus.EventFeedNotified {
					continue
				}
				fn, ok := e.Data.(monitor.FeedNotified)
				if !ok {
					continue
				}
				entry := storage.JournalEntry{
					At:       fn.At,
					Feed:     fn.Feed,
					Decision: fn.Decision.String(),
					Text:     fn.Text,
					OK:       fn.OK,
					Error:    fn.Error,
					TookMS:   fn.TookMS,
				}
				wctx, cancel := context.WithTimeout(c, 5*time.Second)
				if err := st.AppendJournal(wctx, entry); err != nil {
					a.log.Warn("journal append failed", logx.String("feed", fn.Feed), logx.Err(err))
				}
				cancel()
			}
		}
	})
}

// applyConfig pushes a validated config into every live component.
func (a *App) applyConfig(c context.Context, oldCfg, newCfg *Config) {
	sections, attrs, pluginChanged := SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Debug("config change summary", fields...)
		if len(pluginChanged) > 0 {
			a.log.Debug("plugin config changes detected", logx.Any("plugins", pluginChanged))
		}
	} else {
		a.log.Debug("config reload received, but no effective changes detected")
	}

	for _, s := range sections {
		if s == "storage" || s == "state_dir" {
			a.log.Warn("storage config changed; restart required for changes to take effect")
			break
		}
	}
	if oldCfg.Telegram.Token != newCfg.Telegram.Token {
		a.log.Warn("telegram token changed; restart required for the bot to reconnect")
	}

	// update log target first (so Apply() doesn't warn when Telegram logging is enabled)
	a.logs.SetTelegramTarget(logChatID(newCfg))

	// apply logging updates
	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    newCfg.Logging.Telegram.Enabled,
			MinLevel:   newCfg.Logging.Telegram.MinLevel,
			RatePerSec: newCfg.Logging.Telegram.RatePerSec,
		},
	})

	// Update owner list used for AccessOwnerOnly checks and plugin deps.
	a.cmdm.SetOwners(newCfg.Telegram.OwnerUserIDs)
	a.pm.SetOwnerUserIDs(newCfg.Telegram.OwnerUserIDs)

	// apply scheduler updates (live); Apply handles timezone changes by
	// restarting cron with the new location.
	prevSchedEnabled := a.sched.Enabled()
	a.sched.Apply(scheduler.Config{
		Enabled:  newCfg.Scheduler.Enabled,
		Timezone: newCfg.Scheduler.Timezone,
	})
	newSchedEnabled := newCfg.Scheduler.Enabled
	if prevSchedEnabled && !newSchedEnabled {
		a.log.Info("scheduler disabled via config")
		stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	}
	if !prevSchedEnabled && newSchedEnabled {
		a.log.Info("scheduler enabled via config")
		a.sched.Start(c)
	}

	// apply notifier updates (live)
	if a.notif != nil {
		prevNotifEnabled := a.notif.Enabled()
		ncfg, err := mapNotifierConfig(newCfg)
		if err != nil {
			a.log.Warn("invalid notifier config; keeping previous", logx.Any("err", err))
		} else {
			a.notif.Apply(ncfg)
			if prevNotifEnabled && !ncfg.Enabled {
				a.log.Info("notifier disabled via config")
				stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
				a.notif.Stop(stopCtx)
				cancel()
			} else if !prevNotifEnabled && ncfg.Enabled {
				a.log.Info("notifier enabled via config")
				a.notif.Start(c)
			}
		}
	}

	// apply plugin enable/disable + per-plugin config
	a.pm.OnConfigUpdate(c, newCfg)

	// Keep the final log line concise and human-friendly (details are in debug logs).
	if len(sections) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Info("config reloaded", fields...)
	} else {
		a.log.Info("config reloaded (no changes)")
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.String("err", err.Error()))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			// Contract: fn MUST honor stepCtx and return promptly. If it doesn't, log a leak signal.
			elapsed := time.Since(start)
			a.log.Warn(
				"stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.String("err", stepCtx.Err().Error()),
				logx.Duration("elapsed", elapsed),
			)
			// Leak logging: observe when/if the step eventually finishes.
			go func() {
				err := <-done
				took := time.Since(start)
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.String("err", err.Error()), logx.Duration("took", took))
				} else {
					a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
				}
			}()
		}
	}

	// Stop plugins first (they may depend on services). StopAll is timeout-safe per-plugin.
	step("plugins", 4*time.Second, func(c context.Context) error { a.pm.StopAll(c, reason); return nil })

	// Stop services (order: scheduler/notifier/adapter)
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 1*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	// Finally, wait for supervised goroutines (config watch/reload, command dispatcher, etc.)
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

// logChatID resolves the chat used for the telegram log sink.
func logChatID(cfg *Config) int64 {
	if cfg == nil {
		return 0
	}
	if s := strings.TrimSpace(cfg.Telegram.GroupLog); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return id
		}
	}
	return 0
}
