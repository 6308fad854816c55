package ops

import "time"

// PluginsSnapshot is a point-in-time view of plugin runtime state.
//
// This package intentionally contains *data-only* operational types so both
// the command router and the plugin manager can depend on them without
// creating import cycles.
type PluginsSnapshot struct {
	Time    time.Time      `json:"time"`
	Plugins []PluginStatus `json:"plugins"`
}

// PluginStatus captures one plugin's enable/run state.
type PluginStatus struct {
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	Running   bool      `json:"running"`
	HasConfig bool      `json:"has_config"`
	Since     time.Time `json:"since,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}
