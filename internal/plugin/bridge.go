package plugin

import (
	"pricebot/internal/config"
	"pricebot/internal/runtime/lifecycle"
	"pricebot/internal/runtime/supervisor"
	"pricebot/internal/transport/telegram/router"
)

// ---- Config ----

type Config = config.Config

type ConfigManager = config.ConfigManager

// PluginConfigRaw is the raw per-plugin config blob inside config.Config.
// It lives in the config package to keep the schema centralized.
type PluginConfigRaw = config.PluginConfigRaw

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

type SupervisorOption = supervisor.SupervisorOption

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError

type StopReason = lifecycle.StopReason

const (
	StopAppStop       = lifecycle.StopAppStop
	StopPluginDisable = lifecycle.StopPluginDisable
	StopConfigReload  = lifecycle.StopConfigReload
)

// ---- Router API ----

type Access = router.Access

const (
	AccessEveryone  = router.AccessEveryone
	AccessOwnerOnly = router.AccessOwnerOnly
)

type Command = router.Command

type Request = router.Request

type HandlerFunc = router.HandlerFunc

type Services = router.Services

type CommandManager = router.CommandManager

// ---- Service ports (scheduler/notifier/plugins) ----

type SchedulerPort = router.SchedulerPort

type NotifierPort = router.NotifierPort

type PluginsPort = router.PluginsPort

type MonitorsPort = router.MonitorsPort
