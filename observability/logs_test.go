package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"

	kitconfig "github.com/italypaleale/go-fatalguard/config"
)

type otelConfig struct {
	requested string
}

func (c *otelConfig) GetLoadedConfigPath() string {
	return ""
}

func (c *otelConfig) SetLoadedConfigPath(string) {}

func (c *otelConfig) GetOtelResource(name string) (*resource.Resource, error) {
	c.requested = name
	return resource.Empty(), nil
}

func TestInitLogs(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		var buf bytes.Buffer
		log, shutdownFn, err := InitLogs(t.Context(), InitLogsOpts{
			Level:      "warn",
			Writer:     &buf,
			AppName:    "guardharness",
			AppVersion: "v1.2.3",
		})
		require.NoError(t, err)
		require.NotNil(t, shutdownFn)
		defer shutdownFn(t.Context()) //nolint:errcheck

		log.Info("Not logged")
		log.Warn("Worker is slow")

		out := buf.String()
		assert.NotContains(t, out, "Not logged")
		assert.Contains(t, out, `msg="Worker is slow"`)
		assert.Contains(t, out, "app=guardharness")
		assert.Contains(t, out, "version=v1.2.3")
	})

	t.Run("JSON output", func(t *testing.T) {
		var buf bytes.Buffer
		log, _, err := InitLogs(t.Context(), InitLogsOpts{
			Level:   "DEBUG",
			JSON:    true,
			Writer:  &buf,
			AppName: "guardharness",
		})
		require.NoError(t, err)

		log.Debug("Tick", "worker", "worker-1")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "DEBUG", record["level"])
		assert.Equal(t, "Tick", record["msg"])
		assert.Equal(t, "worker-1", record["worker"])
		assert.Equal(t, "guardharness", record["app"])
	})

	t.Run("invalid level", func(t *testing.T) {
		_, _, err := InitLogs(t.Context(), InitLogsOpts{
			Level: "verbose",
		})

		var cfgErr *kitconfig.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		require.ErrorContains(t, err, "Invalid value for 'logLevel': verbose")
	})

	t.Run("fan out to OpenTelemetry", func(t *testing.T) {
		t.Setenv("OTEL_LOGS_EXPORTER", "")

		var buf bytes.Buffer
		cfg := &otelConfig{}
		log, shutdownFn, err := InitLogs(t.Context(), InitLogsOpts{
			Writer:  &buf,
			Config:  cfg,
			AppName: "guardharness",
		})
		require.NoError(t, err)

		log.Info("Started")

		assert.Equal(t, "guardharness", cfg.requested)
		assert.Contains(t, buf.String(), "msg=Started")
		require.NoError(t, shutdownFn(t.Context()))
	})
}
