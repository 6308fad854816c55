// Package system provides operational commands: liveness, uptime,
// runtime info, feed/plugin status, and the scheduled task list.
package system

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	core "pricebot/internal/plugin"
	kit "pricebot/internal/transport"
)

type Plugin struct {
	core.PluginBase
	startedAt time.Time
}

func New() *Plugin             { return &Plugin{} }
func (p *Plugin) Name() string { return "system" }

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	p.InitBase(deps, p.Name())
	if p.startedAt.IsZero() {
		p.startedAt = time.Now()
	}
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)
	if p.startedAt.IsZero() {
		p.startedAt = time.Now()
	}
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Route:       "ping",
			Description: "检测机器人是否在线",
			Usage:       "/ping",
			Access:      core.AccessEveryone,
			Handle: func(ctx context.Context, req *core.Request) error {
				_, _ = req.Adapter.SendText(ctx, req.Chat, "pong", nil)
				return nil
			},
		},
		{
			Route:       "status",
			Aliases:     []string{"状态"},
			Description: "插件与监控状态",
			Usage:       "/status",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdStatus,
		},
		{
			Route:       "uptime",
			Aliases:     []string{"up"},
			Description: "显示运行时长",
			Usage:       "/uptime",
			Access:      core.AccessEveryone,
			Handle: func(ctx context.Context, req *core.Request) error {
				up := time.Since(p.startedAt)
				_, _ = req.Adapter.SendText(ctx, req.Chat, "uptime: "+durRel(up), nil)
				return nil
			},
		},
		{
			Route:       "sysinfo",
			Description: "运行时与内存信息",
			Usage:       "/sysinfo",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdSysinfo,
		},
		{
			Route:       "sched",
			Aliases:     []string{"tasks"},
			Description: "定时任务列表",
			Usage:       "/sched",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdSchedList,
		},
	}
}

func (p *Plugin) cmdSysinfo(ctx context.Context, req *core.Request) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	bi, _ := debug.ReadBuildInfo()
	mod := ""
	if bi != nil {
		mod = bi.Main.Path + " " + bi.Main.Version
	}

	lines := []string{
		"🧠 sysinfo",
		"- go: " + runtime.Version(),
		"- module: " + mod,
		fmt.Sprintf("- goroutines: %d", runtime.NumGoroutine()),
		"- mem_alloc: " + fmtBytes(m.Alloc),
		"- mem_sys: " + fmtBytes(m.Sys),
	}
	_, _ = req.Adapter.SendText(ctx, req.Chat, strings.Join(lines, "\n"), nil)
	return nil
}

func (p *Plugin) cmdSchedList(ctx context.Context, req *core.Request) error {
	var s core.SchedulerPort
	if p.Deps.Services != nil {
		s = p.Deps.Services.Scheduler
	}
	if s == nil || !s.Enabled() {
		_, _ = req.Adapter.SendText(ctx, req.Chat, "scheduler is disabled", nil)
		return nil
	}

	snap := s.Snapshot()
	if len(snap.Schedules) == 0 {
		_, _ = req.Adapter.SendText(ctx, req.Chat, "no scheduled tasks", nil)
		return nil
	}

	sort.Slice(snap.Schedules, func(i, j int) bool { return snap.Schedules[i].Name < snap.Schedules[j].Name })

	now := time.Now()
	lines := make([]string, 0, len(snap.Schedules)+2)
	lines = append(lines, "⏱ scheduled tasks ("+snap.Timezone+"):")
	queueStr := fmt.Sprintf("%d", snap.QueueLen)
	if snap.QueueCap > 0 {
		queueStr = fmt.Sprintf("%d/%d", snap.QueueLen, snap.QueueCap)
	}
	lines = append(lines, fmt.Sprintf("- workers: %d, queue: %s", snap.Workers, queueStr))

	for _, t := range snap.Schedules {
		next := "-"
		if !t.Next.IsZero() {
			next = t.Next.Local().Format("2006-01-02 15:04:05")
			if t.Next.After(now) {
				next += " (" + durRel(t.Next.Sub(now)) + ")"
			}
		}
		timeout := "none"
		if t.Timeout > 0 {
			timeout = t.Timeout.String()
		}
		lines = append(lines, fmt.Sprintf("- %s: spec=%s, next=%s, timeout=%s", t.Name, t.Spec, next, timeout))
	}

	_, _ = req.Adapter.SendText(ctx, req.Chat, strings.Join(lines, "\n"), &kit.SendOptions{DisablePreview: true})
	return nil
}

func shorten(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func fmtBytes(n uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case n >= GB:
		return fmt.Sprintf("%.1fGB", float64(n)/GB)
	case n >= MB:
		return fmt.Sprintf("%.1fMB", float64(n)/MB)
	case n >= KB:
		return fmt.Sprintf("%.1fKB", float64(n)/KB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func durRel(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
