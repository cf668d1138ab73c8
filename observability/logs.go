// Package observability initializes the logger used by applications built on this module.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	logGlobal "go.opentelemetry.io/otel/log/global"
	logSdk "go.opentelemetry.io/otel/sdk/log"

	kitconfig "github.com/italypaleale/go-fatalguard/config"
)

func getLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info": // Also default log level
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, kitconfig.NewConfigError("Invalid value for 'logLevel': "+level, "Invalid configuration")
	}
}

// InitLogsOpts contains options for the InitLogs method
type InitLogsOpts struct {
	// Log level: "debug", "info", "warn", "error", or an empty string (defaults to "info")
	Level string
	// If true, logs as JSON
	JSON bool
	// Destination for logs; defaults to os.Stdout
	// Colors are used only when this is a terminal
	Writer io.Writer

	// If set, logs are also sent to the OpenTelemetry exporter configured with the OTEL_LOGS_EXPORTER env var
	Config     kitconfig.Base
	AppName    string
	AppVersion string
}

// InitLogs initializes a new slog logger and configures it using OpenTelemetry if needed.
// The returned shutdownFn is never nil.
func InitLogs(ctx context.Context, opts InitLogsOpts) (log *slog.Logger, shutdownFn func(ctx context.Context) error, err error) {
	level, err := getLogLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := opts.Writer
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	switch {
	case opts.JSON:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: level,
		})
	case isTerminal(out):
		handler = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.StampMilli,
		})
	default:
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: level,
		})
	}

	shutdownFn = func(context.Context) error { return nil }
	if opts.Config != nil {
		var otelHandler slog.Handler
		otelHandler, shutdownFn, err = initOtelLogs(ctx, opts)
		if err != nil {
			return nil, nil, err
		}

		// Fan out to both handlers
		handler = slog.NewMultiHandler(handler, otelHandler)
	}

	log = slog.New(handler).
		With(slog.String("app", opts.AppName)).
		With(slog.String("version", opts.AppVersion))

	return log, shutdownFn, nil
}

func initOtelLogs(ctx context.Context, opts InitLogsOpts) (slog.Handler, func(ctx context.Context) error, error) {
	resource, err := opts.Config.GetOtelResource(opts.AppName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get OpenTelemetry resource: %w", err)
	}

	// If the env var OTEL_LOGS_EXPORTER is empty, we set it to "none"
	if os.Getenv("OTEL_LOGS_EXPORTER") == "" {
		_ = os.Setenv("OTEL_LOGS_EXPORTER", "none") //nolint:errcheck
	}
	exp, err := autoexport.NewLogExporter(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry log exporter: %w", err)
	}

	provider := logSdk.NewLoggerProvider(
		logSdk.WithProcessor(
			logSdk.NewBatchProcessor(exp),
		),
		logSdk.WithResource(resource),
	)
	logGlobal.SetLoggerProvider(provider)

	return otelslog.NewHandler(opts.AppName, otelslog.WithLoggerProvider(provider)), provider.Shutdown, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
