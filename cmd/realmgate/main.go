// Command realmgate runs the multi-realm authenticating API gateway.
//
// Configuration is read from the file given by -config, REALMGATE_CONFIG,
// ./realmgate.yaml or /etc/realmgate/realmgate.yaml, in that order, and
// then overridden by REALMGATE_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/realmgate/config"
	"github.com/jonwraymond/realmgate/gateway"
	"github.com/jonwraymond/realmgate/observe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "realmgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the configuration file")
	checkOnly := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *checkOnly {
		fmt.Println("configuration ok")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gw.Close(shutdownCtx); err != nil {
			gw.Logger().Warn(shutdownCtx, "telemetry shutdown failed", observe.Field{Key: "error", Value: err.Error()})
		}
	}()

	return gw.Run(ctx)
}
