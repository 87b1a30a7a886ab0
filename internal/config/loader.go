package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. WIN_PROBABILITY_APP_LOG_LEVEL
	EnvPrefix = "WIN_PROBABILITY"

	// DefaultConfigPath is used when no path is supplied
	DefaultConfigPath = "config/config.yaml"

	configPathEnv = EnvPrefix + "_CONFIG_PATH"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ResolvePath picks the config file: the explicit path, then
// WIN_PROBABILITY_CONFIG_PATH, then DefaultConfigPath.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if envPath := os.Getenv(configPathEnv); envPath != "" {
		return envPath
	}
	return DefaultConfigPath
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// setDefaults registers every optional key so environment overrides bind
// even when the file omits the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "win-probability")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.aws_region", "")
	v.SetDefault("app.secret_name", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "win_probability")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("model.backends", []string{"random_forest", "gradient_boosting", "logistic_regression"})
	v.SetDefault("model.weighting", "auc")
	v.SetDefault("model.holdout_fraction", 0.2)
	v.SetDefault("model.min_training_rows", 20)
	v.SetDefault("model.trees", 60)
	v.SetDefault("model.max_depth", 6)
	v.SetDefault("model.min_samples_leaf", 3)
	v.SetDefault("model.boosting_rounds", 120)
	v.SetDefault("model.boosting_depth", 3)
	v.SetDefault("model.learning_rate", 0.1)
	v.SetDefault("model.l2", 1.0)
	v.SetDefault("model.logistic_iterations", 600)
	v.SetDefault("model.logistic_step", 0.2)
	v.SetDefault("model.logistic_l2", 0.01)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.load_on_startup", true)

	v.SetDefault("prediction.cache_ttl_seconds", 900)
	v.SetDefault("prediction.cache_max_size", 10000)
	v.SetDefault("prediction.batch_workers", 8)
	v.SetDefault("prediction.item_timeout_seconds", 5)
	v.SetDefault("prediction.fetch_timeout_seconds", 3)
	v.SetDefault("prediction.historical_outcome_limit", 2000)
	v.SetDefault("prediction.dashboard_window_days", 30)
	v.SetDefault("prediction.default_top_limit", 10)
	v.SetDefault("prediction.persist_predictions", true)

	v.SetDefault("market_data.source", MarketSourcePostgres)
	v.SetDefault("market_data.url", "")
	v.SetDefault("market_data.api_key", "")
	v.SetDefault("market_data.timeout_seconds", 10)
	v.SetDefault("market_data.retry_attempts", 3)
	v.SetDefault("market_data.requests_per_second", 5.0)
	v.SetDefault("market_data.snapshot_ttl_hours", 6)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.market_refresh", "0 */6 * * *")
	v.SetDefault("scheduler.retrain", "@daily")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.port", 8080)
	v.SetDefault("health.grpc_port", 8081)
}
