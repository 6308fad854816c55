package router

import (
	"pricebot/internal/config"
	"pricebot/internal/plugin/ops"
	"pricebot/internal/runtime/supervisor"
	"pricebot/internal/task/scheduler"
)

// ---- Config ----

type Config = config.Config

type ConfigManager = config.ConfigManager

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError

// ---- Restart helpers (for resilient worker loops) ----

type RestartOption = supervisor.RestartOption

var WithRestartBackoff = supervisor.WithRestartBackoff

var WithStopOnCleanExit = supervisor.WithStopOnCleanExit

// ---- Task/scheduler operational types ----

type Snapshot = scheduler.Snapshot

// ---- Plugin operational types (no import cycle) ----

type PluginsSnapshot = ops.PluginsSnapshot

type PluginStatus = ops.PluginStatus
