package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"pricebot/internal/eventbus"
	kit "pricebot/internal/transport"
	logx "pricebot/pkg/logx"
)

// PluginBase is a small helper to make writing plugins faster and safer.
// Typical usage:
//
//	type Plugin struct { plugin.PluginBase }
//	func (p *Plugin) Init(ctx context.Context, deps plugin.PluginDeps) error { p.InitBase(deps, p.Name()); return nil }
//	func (p *Plugin) Start(ctx context.Context) error { p.StartBase(ctx); p.Runner.Go(...); return nil }
//	func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }
type PluginBase struct {
	Log        logx.Logger
	Deps       PluginDeps
	Runner     *Supervisor
	pluginName string

	ctx context.Context
}

// Supervisor returns the per-plugin supervisor, if StartBase has been called.
func (b *PluginBase) Supervisor() *Supervisor { return b.Runner }

// InitBase wires deps + logger.
func (b *PluginBase) InitBase(deps PluginDeps, pluginName string) {
	b.Deps = deps
	b.pluginName = pluginName
	if !deps.Logger.IsZero() {
		b.Log = deps.Logger.With(logx.String("plugin", pluginName))
	} else {
		b.Log = logx.Nop().With(logx.String("plugin", pluginName))
	}
}

// StartBase creates a per-plugin supervisor tied to ctx.
func (b *PluginBase) StartBase(ctx context.Context) {
	b.ctx = ctx
	b.Runner = NewSupervisor(ctx, WithLogger(b.Log), WithCancelOnError(false))
}

// StopBase cancels runner + waits bounded by ctx.
func (b *PluginBase) StopBase(ctx context.Context) error {
	if b.Runner == nil {
		return nil
	}
	b.Runner.Cancel()
	err := b.Runner.Wait(ctx)
	b.Runner = nil
	return err
}

// Context returns the plugin runtime context (canceled on stop/disable).
func (b *PluginBase) Context() context.Context { return b.ctx }

// Scheduler helpers (namespaced by plugin).
func (b *PluginBase) Every(name string, every time.Duration, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	if b.Deps.Services == nil || b.Deps.Services.Scheduler == nil {
		return "", errors.New("scheduler not available")
	}
	return b.Deps.Services.Scheduler.AddInterval(b.ns(name), every, timeout, job)
}

func (b *PluginBase) Cron(name, spec string, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	if b.Deps.Services == nil || b.Deps.Services.Scheduler == nil {
		return "", errors.New("scheduler not available")
	}
	return b.Deps.Services.Scheduler.AddCron(b.ns(name), spec, timeout, job)
}

func (b *PluginBase) Daily(name, atHHMM string, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	if b.Deps.Services == nil || b.Deps.Services.Scheduler == nil {
		return "", errors.New("scheduler not available")
	}
	return b.Deps.Services.Scheduler.AddDaily(b.ns(name), atHHMM, timeout, job)
}

func (b *PluginBase) RemoveSchedule(name string) bool {
	if b.Deps.Services == nil || b.Deps.Services.Scheduler == nil {
		return false
	}
	return b.Deps.Services.Scheduler.Remove(b.ns(name))
}

func (b *PluginBase) ns(name string) string {
	if b.pluginName == "" {
		return name
	}
	if name == "" {
		return b.pluginName
	}
	return b.pluginName + ":" + name
}

// Notify enqueues an asynchronous notification (fire and forget with retry).
func (b *PluginBase) Notify(ctx context.Context, n kit.Notification) error {
	if b.Deps.Services == nil || b.Deps.Services.Notifier == nil {
		return errors.New("notifier not available")
	}
	return b.Deps.Services.Notifier.Notify(ctx, n)
}

// Send delivers a notification synchronously and reports whether it reached
// Telegram. Feed monitors need the outcome before advancing their baselines.
func (b *PluginBase) Send(ctx context.Context, n kit.Notification) error {
	if b.Deps.Services == nil || b.Deps.Services.Notifier == nil {
		return errors.New("notifier not available")
	}
	return b.Deps.Services.Notifier.Send(ctx, n)
}

// Info sends a medium-priority text to a chat via the async notifier.
func (b *PluginBase) Info(chatID int64, text string) error {
	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n := kit.Notification{
		Channel:  "telegram",
		Priority: 5,
		Target:   kit.ChatTarget{ChatID: chatID},
		Text:     text,
	}
	return b.Notify(cctx, n)
}

// NotifyTarget resolves the chat that feed notifications go to: the
// configured notify_chat_id if set, else the log group, else the
// first owner.
func (b *PluginBase) NotifyTarget() kit.ChatTarget {
	cfgm := b.Deps.Config
	if cfgm != nil {
		if cfg := cfgm.Get(); cfg != nil {
			if cfg.Telegram.NotifyChatID != 0 {
				return kit.ChatTarget{ChatID: cfg.Telegram.NotifyChatID}
			}
			if s := strings.TrimSpace(cfg.Telegram.GroupLog); s != "" {
				if id, err := strconv.ParseInt(s, 10, 64); err == nil {
					return kit.ChatTarget{ChatID: id}
				}
			}
		}
	}
	if len(b.Deps.OwnerUserID) > 0 {
		return kit.ChatTarget{ChatID: b.Deps.OwnerUserID[0]}
	}
	return kit.ChatTarget{}
}

// Location resolves the configured scheduler timezone. Daily-aligned
// monitors and calendar-date gates share it so "today" means the same
// thing everywhere. Bad or missing config falls back to the host zone.
func (b *PluginBase) Location() *time.Location {
	if cfgm := b.Deps.Config; cfgm != nil {
		if cfg := cfgm.Get(); cfg != nil {
			if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
				if loc, err := time.LoadLocation(tz); err == nil {
					return loc
				}
			}
		}
	}
	return time.Local
}

// PublishEvent publishes a lightweight event to the in-process event bus (if
// present). Publish is non-blocking.
func (b *PluginBase) PublishEvent(typ string, data any) {
	if b == nil {
		return
	}
	bus := b.Deps.Bus
	if bus == nil {
		return
	}
	bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// DecodePluginConfig decodes per-plugin raw json into a typed config struct.
func DecodePluginConfig[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
