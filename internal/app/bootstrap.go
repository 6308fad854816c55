package app

import (
	"time"

	"pricebot/internal/config"
	"pricebot/internal/plugin"
	"pricebot/internal/runtime/supervisor"
	"pricebot/internal/transport/telegram/router"
)

// Aliases so the wiring code reads in one vocabulary. The app package
// assembles config, runtime, router and plugin layers; it adds no
// behavior of its own on top of them.

type Config = config.Config

type ConfigManager = config.ConfigManager

var NewConfigManager = config.NewConfigManager

var SummarizeConfigChange = config.SummarizeConfigChange

func parseDurationField(path, raw string) (time.Duration, error) {
	return config.ParseDurationField(path, raw)
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	return config.ParseDurationOrDefault(path, raw, def)
}

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError

type Services = router.Services

type SupervisorRegistry = router.SupervisorRegistry

var NewSupervisorRegistry = router.NewSupervisorRegistry

type CommandManager = router.CommandManager

var NewCommandManager = router.NewCommandManager

type PluginManager = plugin.PluginManager

type PluginDeps = plugin.PluginDeps

var NewPluginManager = plugin.NewPluginManager
