// Package lifecycle holds small shared types describing process and
// component lifecycle transitions.
package lifecycle

// StopReason describes why a component (or the whole process) is stopping.
type StopReason string

const (
	StopUnknown       StopReason = "unknown"
	StopSIGINT        StopReason = "sigint"
	StopSIGTERM       StopReason = "sigterm"
	StopFatalError    StopReason = "fatal_error"
	StopAppStop       StopReason = "app_stop"
	StopPluginDisable StopReason = "plugin_disable"
	StopConfigReload  StopReason = "config_reload"
)

func (r StopReason) String() string {
	if r == "" {
		return string(StopUnknown)
	}
	return string(r)
}
