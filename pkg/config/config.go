// Package config loads loctrack settings from a YAML file, the environment
// and command line flags.
package config

import (
	"errors"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"
)

// Config is the top-level configuration struct for loctrack.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	ReposFile string          `mapstructure:"repos_file"`
	Repos     []string        `mapstructure:"repos"`
	Dirs      DirsConfig      `mapstructure:"dirs"`
	Git       GitConfig       `mapstructure:"git"`
	Counter   CounterConfig   `mapstructure:"counter"`
	Store     StoreConfig     `mapstructure:"store"`
	Chart     ChartConfig     `mapstructure:"chart"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DirsConfig holds the artifact directories.
type DirsConfig struct {
	History  string `mapstructure:"history"`
	Badges   string `mapstructure:"badges"`
	Diagrams string `mapstructure:"diagrams"`
	// Work is the parent of the per-repository temp clones. Empty means the
	// system temp dir.
	Work string `mapstructure:"work"`
}

// GitConfig holds clone settings.
type GitConfig struct {
	Backend      string        `mapstructure:"backend"`
	BaseURL      string        `mapstructure:"base_url"`
	TokenEnv     string        `mapstructure:"token_env"`
	Username     string        `mapstructure:"username"`
	CloneTimeout time.Duration `mapstructure:"clone_timeout"`
}

// CounterConfig selects the line counter.
type CounterConfig struct {
	Mode    string        `mapstructure:"mode"`
	Command string        `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the history store.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ChartConfig holds chart rendering settings.
type ChartConfig struct {
	SVG    bool   `mapstructure:"svg"`
	HTML   bool   `mapstructure:"html"`
	Theme  string `mapstructure:"theme"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"` // key=value,key=value
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsFile  string  `mapstructure:"metrics_file"`
	Environment  string  `mapstructure:"environment"`
}

// Sentinel validation errors.
var (
	// ErrInvalidGitBackend indicates an unknown git.backend value.
	ErrInvalidGitBackend = errors.New("git.backend must be libgit2 or gogit")
	// ErrInvalidCounterMode indicates an unknown counter.mode value.
	ErrInvalidCounterMode = errors.New("counter.mode must be wc, code or exec")
	// ErrMissingCounterCommand indicates exec mode without a command.
	ErrMissingCounterCommand = errors.New("counter.command is required in exec mode")
	// ErrInvalidStoreBackend indicates an unknown store.backend value.
	ErrInvalidStoreBackend = errors.New("store.backend must be json or sqlite")
	// ErrInvalidChartTheme indicates an unknown chart.theme value.
	ErrInvalidChartTheme = errors.New("chart.theme must be dark or light")
	// ErrInvalidChartSize indicates a non-positive chart dimension.
	ErrInvalidChartSize = errors.New("chart.width and chart.height must be positive")
	// ErrInvalidLogLevel indicates an unparsable logging.level value.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidTimeout indicates a negative timeout.
	ErrInvalidTimeout = errors.New("timeouts must be non-negative")
	// ErrInvalidSampleRatio indicates a telemetry.sample_ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
	// ErrMissingDir indicates an empty artifact directory.
	ErrMissingDir = errors.New("dirs.history, dirs.badges and dirs.diagrams must be set")
)

var (
	gitBackends   = []string{"libgit2", "gogit"}
	counterModes  = []string{"wc", "code", "exec"}
	storeBackends = []string{"json", "sqlite"}
	chartThemes   = []string{"dark", "light"}
)

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Dirs.History == "" || c.Dirs.Badges == "" || c.Dirs.Diagrams == "" {
		return ErrMissingDir
	}

	if !slices.Contains(gitBackends, c.Git.Backend) {
		return ErrInvalidGitBackend
	}

	if c.Git.CloneTimeout < 0 || c.Counter.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if !slices.Contains(counterModes, c.Counter.Mode) {
		return ErrInvalidCounterMode
	}

	if c.Counter.Mode == "exec" && strings.TrimSpace(c.Counter.Command) == "" {
		return ErrMissingCounterCommand
	}

	if !slices.Contains(storeBackends, c.Store.Backend) {
		return ErrInvalidStoreBackend
	}

	return c.validateOutput()
}

func (c *Config) validateOutput() error {
	if !slices.Contains(chartThemes, c.Chart.Theme) {
		return ErrInvalidChartTheme
	}

	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return ErrInvalidChartSize
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	_, err := c.Logging.SlogLevel()

	return err
}

// SlogLevel parses Logging.Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo, ErrInvalidLogLevel
	}

	return level, nil
}

// Token returns the clone token from the environment variable named by
// TokenEnv. Empty means anonymous access.
func (g GitConfig) Token() string {
	if g.TokenEnv == "" {
		return ""
	}

	return os.Getenv(g.TokenEnv)
}
