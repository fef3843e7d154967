/*
Headless runner for the asset pipeline: loads every model under the asset
root into a demo scene and draws it on the in-memory device.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	assetRoot := flag.String("assets", "", "asset root, overrides the config")
	logLevel := flag.String("log", "", "log level, overrides the config")
	duration := flag.Duration("duration", 0, "stop after this long; 0 runs until interrupted")
	flag.Parse()

	cfg := core.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = core.LoadConfig(*configPath); err != nil {
			core.LogFatal("%s", err)
		}
	}
	if *assetRoot != "" {
		cfg.Assets.Root = *assetRoot
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	tb := testbed.NewTestGame()

	e, err := engine.New(cfg, tb.Game)
	if err != nil {
		core.LogFatal("%s", err)
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("%s", err)
	}

	// signal context to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	start := time.Now()
	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	core.LogInfo("session %s ran for %s", e.SessionID(), time.Since(start).Round(time.Millisecond))
	if runErr != nil {
		os.Exit(1)
	}
}
