package main

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	FailNone  = ""
	FailPanic = "panic"
	FailError = "error"
)

const defaultInterval = 100 * time.Millisecond

// Config is the configuration of the harness, loaded from YAML.
type Config struct {
	// Log level: "debug", "info", "warn", "error"
	LogLevel string `yaml:"logLevel"`
	// If true, logs are formatted as JSON
	LogJSON bool `yaml:"logJSON"`
	// Address the HTTP server listens on, such as "127.0.0.1:8080"
	// The server is disabled if empty
	Listen string `yaml:"listen"`
	// Workers started by the harness, each on its own guarded goroutine
	Workers []WorkerConfig `yaml:"workers"`

	// Internal keys
	loadedConfigPath string `yaml:"-"`
}

// WorkerConfig configures one worker.
type WorkerConfig struct {
	// Name of the worker, also used as the goroutine name in diagnostics
	Name string `yaml:"name"`
	// Number of ticks before the worker completes or fails
	Ticks int `yaml:"ticks"`
	// Interval between ticks; defaults to 100ms
	Interval time.Duration `yaml:"interval"`
	// How the worker fails after its last tick: "" (it doesn't), "panic", or "error"
	Fail string `yaml:"fail"`
	// Message of the failure
	Message string `yaml:"message"`
}

func (c *Config) GetLoadedConfigPath() string {
	return c.loadedConfigPath
}

func (c *Config) SetLoadedConfigPath(filePath string) {
	c.loadedConfigPath = filePath
}

func (c *Config) GetOtelResource(name string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", name),
			attribute.String("service.version", version),
		),
	)
}

// Validate the configuration.
func (c *Config) Validate() error {
	if len(c.Workers) == 0 {
		return errors.New("at least one worker must be configured")
	}

	seen := make(map[string]struct{}, len(c.Workers))
	for i, w := range c.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker %d: name is empty", i)
		}
		if _, ok := seen[w.Name]; ok {
			return fmt.Errorf("worker %s: duplicate name", w.Name)
		}
		seen[w.Name] = struct{}{}

		if w.Ticks < 0 {
			return fmt.Errorf("worker %s: ticks must not be negative", w.Name)
		}
		if w.Interval < 0 {
			return fmt.Errorf("worker %s: interval must not be negative", w.Name)
		}
		switch w.Fail {
		case FailNone, FailPanic, FailError:
			// Nop
		default:
			return fmt.Errorf("worker %s: invalid value for 'fail': %q", w.Name, w.Fail)
		}
	}

	return nil
}

func (w WorkerConfig) interval() time.Duration {
	if w.Interval <= 0 {
		return defaultInterval
	}
	return w.Interval
}

func (w WorkerConfig) message() string {
	if w.Message == "" {
		return "worker " + w.Name + " failed"
	}
	return w.Message
}
