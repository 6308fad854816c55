package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"pricebot/internal/app"
	"pricebot/internal/plugin/builtin/eggprice"
	"pricebot/internal/plugin/builtin/fuelprice"
	"pricebot/internal/plugin/builtin/goldratio"
	"pricebot/internal/plugin/builtin/system"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	a.Plugins().Register(
		goldratio.New(),
		fuelprice.New(),
		eggprice.New(),
		system.New(),
	)

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	// No-op outside systemd (NOTIFY_SOCKET unset).
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	reason := app.StopSIGTERM
	select {
	case <-ctx.Done():
		// signal.NotifyContext can't tell us which signal fired; SIGTERM is the
		// common service-manager path and SIGINT only differs in log output.
	case <-a.Done():
		if err := a.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "fatal runtime:", err)
			reason = app.StopFatalError
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, reason); err != nil {
		fmt.Fprintln(os.Stderr, "stop:", err)
		os.Exit(1)
	}

	if reason == app.StopFatalError {
		os.Exit(1)
	}
}
