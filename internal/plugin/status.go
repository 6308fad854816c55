package plugin

import (
	"pricebot/internal/monitor"
	ops "pricebot/internal/plugin/ops"
)

// Re-export operational status types from plugin/ops so callers can continue
// to refer to them via plugin.* while avoiding import cycles with the router.

type PluginsSnapshot = ops.PluginsSnapshot

type PluginStatus = ops.PluginStatus

// MonitorSnapshot is the per-feed runner state exposed for /status.
type MonitorSnapshot = monitor.Snapshot
