// guardharness runs a set of named workers, each on its own guarded goroutine, as described by a YAML config file.
// When a worker fails, the whole process exits with status 1 and the diagnostic on stderr; the other workers never reach their checkpoint.
//
// Usage:
//
//	guardharness [--config path] [--log-level level] [--json] [--listen addr] [--primary-fail message]
//
// Without --config, the file is read from the path in the GUARDHARNESS_CONFIG env var, or from config.yaml in the current folder, ~/.guardharness, or /etc/guardharness.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	kclock "k8s.io/utils/clock"

	kitconfig "github.com/italypaleale/go-fatalguard/config"
	"github.com/italypaleale/go-fatalguard/observability"
	slogkit "github.com/italypaleale/go-fatalguard/slog"
)

const appName = "guardharness"

// Set at build time
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, kclock.RealClock{})
	if err != nil {
		var cfgErr *kitconfig.ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.LogFatal(slog.Default())
			return
		}
		slogkit.FatalError(slog.Default(), "Harness failed", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, clock kclock.Clock) error {
	var (
		configPath  string
		logLevel    string
		logJSON     bool
		listen      string
		primaryFail string
	)

	flagSet := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVar(&configPath, "config", "", "path to the config file")
	flagSet.StringVar(&logLevel, "log-level", "", "log level, overriding the config file: debug, info, warn, error")
	flagSet.BoolVar(&logJSON, "json", false, "log as JSON")
	flagSet.StringVar(&listen, "listen", "", "address for the HTTP server, overriding the config file")
	flagSet.StringVar(&primaryFail, "primary-fail", "", "panic on the main goroutine with this message before starting")

	err := flagSet.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}

	if primaryFail != "" {
		failOnPrimary(primaryFail)
	}

	cfg := &Config{}
	err = kitconfig.LoadConfig(cfg, kitconfig.LoadConfigOpts{
		EnvVar:  "GUARDHARNESS_CONFIG",
		DirName: appName,
		Path:    configPath,
	})
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logJSON {
		cfg.LogJSON = true
	}
	if listen != "" {
		cfg.Listen = listen
	}

	out := &syncWriter{w: stdout}
	log, shutdownLogs, err := observability.InitLogs(ctx, observability.InitLogsOpts{
		Level:      cfg.LogLevel,
		JSON:       cfg.LogJSON,
		Writer:     out,
		Config:     cfg,
		AppName:    appName,
		AppVersion: version,
	})
	if err != nil {
		return err
	}
	defer shutdownLogs(context.Background()) //nolint:errcheck

	meter, shutdownMetrics, err := observability.InitMetrics(ctx, observability.InitMetricsOpts{
		Config:  cfg,
		AppName: appName,
		Prefix:  appName,
	})
	if err != nil {
		return err
	}
	defer shutdownMetrics(context.Background()) //nolint:errcheck

	metrics, err := newWorkerMetrics(meter)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Loaded configuration", slog.String("path", cfg.GetLoadedConfigPath()), slog.Int("workers", len(cfg.Workers)))

	var stopServer func(ctx context.Context) error
	if cfg.Listen != "" {
		stopServer = startServer(log, cfg.Listen)
	}

	runner := &workerRunner{
		log:     log,
		out:     out,
		clock:   clock,
		metrics: metrics,
	}
	runner.runAll(ctx, cfg.Workers)
	log.InfoContext(ctx, "All workers completed")

	if stopServer != nil {
		// Keep serving until the process is asked to stop
		<-ctx.Done()
		err = stopServer(context.Background())
		if err != nil {
			return fmt.Errorf("failed to stop HTTP server: %w", err)
		}
	}

	return nil
}
