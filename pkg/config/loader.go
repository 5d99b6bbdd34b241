package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = "loctrack"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for loctrack settings.
const envPrefix = "LOCTRACK"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// dotenvFile is loaded into the process environment before anything else.
const dotenvFile = ".env"

// Options controls where LoadConfig looks for settings.
type Options struct {
	// Path is an explicit config file. Empty searches "." and "./config".
	Path string

	// DotEnv overrides the .env file location. Empty means ".env" in the
	// working directory.
	DotEnv string

	// Flags are bound by key: the map value is the flag name. A flag only
	// wins over file and environment when it was set on the command line.
	Flags    *pflag.FlagSet
	Bindings map[string]string
}

// LoadConfig loads configuration from .env, file, env vars, flags, and defaults.
// Missing config and .env files are not an error; defaults are used.
func LoadConfig(opts Options) (*Config, error) {
	dotenvErr := loadDotEnv(opts.DotEnv)
	if dotenvErr != nil {
		return nil, dotenvErr
	}

	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if opts.Path != "" {
		viperCfg.SetConfigFile(opts.Path)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	bindErr := bindFlags(viperCfg, opts.Flags, opts.Bindings)
	if bindErr != nil {
		return nil, bindErr
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		path = dotenvFile
	}

	// Existing environment variables take precedence over the file.
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

func bindFlags(viperCfg *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	if flags == nil {
		return nil
	}

	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}

		err := viperCfg.BindPFlag(key, flag)
		if err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}

	return nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repos_file", DefaultReposFile)
	viperCfg.SetDefault("repos", []string{})

	viperCfg.SetDefault("dirs.history", DefaultHistoryDir)
	viperCfg.SetDefault("dirs.badges", DefaultBadgeDir)
	viperCfg.SetDefault("dirs.diagrams", DefaultDiagramDir)
	viperCfg.SetDefault("dirs.work", DefaultWorkDir)

	viperCfg.SetDefault("git.backend", DefaultGitBackend)
	viperCfg.SetDefault("git.base_url", DefaultGitBaseURL)
	viperCfg.SetDefault("git.token_env", DefaultGitTokenEnv)
	viperCfg.SetDefault("git.username", DefaultGitUsername)
	viperCfg.SetDefault("git.clone_timeout", DefaultCloneTimeout)

	viperCfg.SetDefault("counter.mode", DefaultCounterMode)
	viperCfg.SetDefault("counter.command", DefaultCounterCommand)
	viperCfg.SetDefault("counter.timeout", DefaultCounterTimeout)

	viperCfg.SetDefault("store.backend", DefaultStoreBackend)
	viperCfg.SetDefault("store.sqlite_path", DefaultSQLitePath)

	viperCfg.SetDefault("chart.svg", DefaultChartSVG)
	viperCfg.SetDefault("chart.html", DefaultChartHTML)
	viperCfg.SetDefault("chart.theme", DefaultChartTheme)
	viperCfg.SetDefault("chart.width", DefaultChartWidth)
	viperCfg.SetDefault("chart.height", DefaultChartHeight)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.metrics_file", DefaultMetricsFile)
	viperCfg.SetDefault("telemetry.environment", "")
}
