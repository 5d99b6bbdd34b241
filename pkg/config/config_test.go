package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/loctrack/pkg/config"
)

func validConfig() config.Config {
	return config.Config{
		Dirs:    config.DirsConfig{History: "LOC", Badges: "badges", Diagrams: "diagrams"},
		Git:     config.GitConfig{Backend: "libgit2"},
		Counter: config.CounterConfig{Mode: "wc"},
		Store:   config.StoreConfig{Backend: "json"},
		Chart:   config.ChartConfig{Theme: "dark", Width: 100, Height: 50},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"valid", func(*config.Config) {}, nil},
		{"missing dir", func(c *config.Config) { c.Dirs.Badges = "" }, config.ErrMissingDir},
		{"git backend", func(c *config.Config) { c.Git.Backend = "svn" }, config.ErrInvalidGitBackend},
		{"clone timeout", func(c *config.Config) { c.Git.CloneTimeout = -1 }, config.ErrInvalidTimeout},
		{"counter mode", func(c *config.Config) { c.Counter.Mode = "cloc" }, config.ErrInvalidCounterMode},
		{"exec without command", func(c *config.Config) { c.Counter.Mode = "exec" }, config.ErrMissingCounterCommand},
		{"store backend", func(c *config.Config) { c.Store.Backend = "redis" }, config.ErrInvalidStoreBackend},
		{"chart theme", func(c *config.Config) { c.Chart.Theme = "neon" }, config.ErrInvalidChartTheme},
		{"chart size", func(c *config.Config) { c.Chart.Height = 0 }, config.ErrInvalidChartSize},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, config.ErrInvalidLogLevel},
		{"sample ratio", func(c *config.Config) { c.Telemetry.SampleRatio = 1.5 }, config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoggingConfig_SlogLevel(t *testing.T) {
	t.Parallel()

	level, err := config.LoggingConfig{Level: "warn"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = config.LoggingConfig{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestGitConfig_TokenEmptyEnvName(t *testing.T) {
	t.Parallel()

	assert.Empty(t, config.GitConfig{}.Token())
}
