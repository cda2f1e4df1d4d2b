package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fanctl/internal/app"
	"fanctl/internal/config"
	"fanctl/internal/logging"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

var version = "dev"
var appName = "fanctl"

type options struct {
	EnvFile  string `long:"env-file" default:".env" description:"dotenv file loaded before reading the environment"`
	Hardware string `long:"hardware" description:"YAML pin map, overrides HARDWARE_CONFIG"`
	Simulate bool   `long:"simulate" description:"run with a simulated sensor and in-memory GPIO"`
	Version  bool   `long:"version" description:"print the version and exit"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if opts.Version {
		fmt.Println(appName, version)
		return
	}

	envErr := godotenv.Load(opts.EnvFile)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if opts.Hardware != "" {
		cfg.HardwareConfig = opts.Hardware
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	if envErr != nil {
		slog.Warn("could not load env file", "path", opts.EnvFile, "error", envErr)
	}

	hw, err := config.LoadHardware(cfg.HardwareConfig)
	if err != nil {
		slog.Error("hardware config error", "error", err)
		os.Exit(1)
	}

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
		"loop_interval", cfg.LoopInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, hw, opts.Simulate); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
