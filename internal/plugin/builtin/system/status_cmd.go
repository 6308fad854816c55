package system

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	core "pricebot/internal/plugin"
	kit "pricebot/internal/transport"
)

// cmdStatus reports plugin runtime state plus each feed monitor's
// runner snapshot. Owner-only since it exposes error details.
func (p *Plugin) cmdStatus(ctx context.Context, req *core.Request) error {
	ps := req.Services
	if ps == nil || ps.Plugins == nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, "plugins service is unavailable", nil)
		return nil
	}

	plSnap := ps.Plugins.Snapshot()

	lines := make([]string, 0, 32)
	lines = append(lines, "📋 status")
	lines = append(lines, fmt.Sprintf("- uptime: %s, goroutines: %d", durRel(time.Since(p.startedAt)), runtime.NumGoroutine()))

	// Plugins.
	names := make([]string, 0, len(plSnap.Plugins))
	byName := map[string]int{}
	for i, st := range plSnap.Plugins {
		names = append(names, st.Name)
		byName[st.Name] = i
	}
	sort.Strings(names)

	lines = append(lines, fmt.Sprintf("- plugins (%d):", len(names)))
	for _, name := range names {
		st := plSnap.Plugins[byName[name]]
		mark := "⚪"
		state := "disabled"
		switch {
		case st.Running:
			mark = "🟢"
			state = "running"
			if !st.Since.IsZero() {
				state += " " + durRel(time.Since(st.Since))
			}
		case st.Enabled:
			mark = "🟡"
			state = "enabled, not running"
		}
		line := fmt.Sprintf("  %s %s: %s", mark, st.Name, state)
		if st.LastError != "" {
			line += " (err: " + shorten(st.LastError, 80) + ")"
		}
		lines = append(lines, line)
	}

	// Feed monitors.
	if ps.Monitors != nil {
		snaps := ps.Monitors.Snapshots()
		if len(snaps) > 0 {
			sort.Slice(snaps, func(i, j int) bool { return snaps[i].Feed < snaps[j].Feed })
			lines = append(lines, fmt.Sprintf("- monitors (%d):", len(snaps)))
			for _, s := range snaps {
				next := "-"
				if !s.NextCycleAt.IsZero() {
					next = s.NextCycleAt.Local().Format("15:04:05")
				}
				line := fmt.Sprintf("  %s: %s, cycles=%d, notified=%d, faults=%d, next=%s",
					s.Feed, s.State, s.Cycles, s.Notified, s.Faults, next)
				if s.LastError != "" {
					line += " (err: " + shorten(s.LastError, 80) + ")"
				}
				lines = append(lines, line)
			}
		}
	}

	// Scheduler summary.
	if ps.Scheduler != nil && ps.Scheduler.Enabled() {
		s := ps.Scheduler.Snapshot()
		queueStr := fmt.Sprintf("%d", s.QueueLen)
		if s.QueueCap > 0 {
			queueStr = fmt.Sprintf("%d/%d", s.QueueLen, s.QueueCap)
		}
		line := fmt.Sprintf("- scheduler: %d tasks, workers=%d, queue=%s", len(s.Schedules), s.Workers, queueStr)
		if s.Dropped > 0 {
			line += fmt.Sprintf(", dropped=%d", s.Dropped)
		}
		lines = append(lines, line)
	} else {
		lines = append(lines, "- scheduler: disabled")
	}

	// Supervisor counters.
	if ps.AppSupervisor != nil {
		c := ps.AppSupervisor.Counters()
		lines = append(lines, fmt.Sprintf("- supervisor: active=%d started=%d", c.Active, c.Started))
	}
	if ps.RuntimeSupervisors != nil {
		for _, name := range ps.RuntimeSupervisors.Names() {
			sup := ps.RuntimeSupervisors.Get(name)
			if sup == nil {
				continue
			}
			c := sup.Counters()
			lines = append(lines, fmt.Sprintf("  %s: active=%d started=%d", name, c.Active, c.Started))
		}
	}

	_, _ = req.Adapter.SendText(ctx, req.Chat, strings.Join(lines, "\n"), &kit.SendOptions{DisablePreview: true})
	return nil
}
