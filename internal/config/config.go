// Package config provides configuration management for the win probability service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Model      ModelConfig      `mapstructure:"model" validate:"required"`
	Prediction PredictionConfig `mapstructure:"prediction" validate:"required"`
	MarketData MarketDataConfig `mapstructure:"market_data" validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Health     HealthConfig     `mapstructure:"health" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	// AWSRegion and SecretName enable the Secrets Manager overlay when both are set
	AWSRegion  string `mapstructure:"aws_region"`
	SecretName string `mapstructure:"secret_name"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ModelConfig selects ensemble backends and their hyperparameters
type ModelConfig struct {
	Backends           []string `mapstructure:"backends" validate:"required,min=1,unique,backends"`
	Weighting          string   `mapstructure:"weighting" validate:"required,weighting"`
	HoldoutFraction    float64  `mapstructure:"holdout_fraction" validate:"gte=0,lt=1"`
	MinTrainingRows    int      `mapstructure:"min_training_rows" validate:"required,gte=2"`
	Trees              int      `mapstructure:"trees" validate:"required,gt=0"`
	MaxDepth           int      `mapstructure:"max_depth" validate:"required,gt=0,lte=16"`
	MinSamplesLeaf     int      `mapstructure:"min_samples_leaf" validate:"required,gt=0"`
	BoostingRounds     int      `mapstructure:"boosting_rounds" validate:"required,gt=0"`
	BoostingDepth      int      `mapstructure:"boosting_depth" validate:"required,gt=0,lte=8"`
	LearningRate       float64  `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	L2                 float64  `mapstructure:"l2" validate:"gte=0"`
	LogisticIterations int      `mapstructure:"logistic_iterations" validate:"required,gt=0"`
	LogisticStep       float64  `mapstructure:"logistic_step" validate:"required,gt=0"`
	LogisticL2         float64  `mapstructure:"logistic_l2" validate:"gte=0"`
	Seed               int64    `mapstructure:"seed"`
	LoadOnStartup      bool     `mapstructure:"load_on_startup"`
}

// PredictionConfig controls serving behavior
type PredictionConfig struct {
	CacheTTLSeconds        int  `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize           int  `mapstructure:"cache_max_size" validate:"required,gt=0"`
	BatchWorkers           int  `mapstructure:"batch_workers" validate:"required,gt=0"`
	ItemTimeoutSeconds     int  `mapstructure:"item_timeout_seconds" validate:"required,gt=0"`
	FetchTimeoutSeconds    int  `mapstructure:"fetch_timeout_seconds" validate:"required,gt=0"`
	HistoricalOutcomeLimit int  `mapstructure:"historical_outcome_limit" validate:"required,gt=0"`
	DashboardWindowDays    int  `mapstructure:"dashboard_window_days" validate:"required,gt=0"`
	DefaultTopLimit        int  `mapstructure:"default_top_limit" validate:"required,gt=0"`
	PersistPredictions     bool `mapstructure:"persist_predictions"`
}

// MarketDataConfig selects where market statistics come from
type MarketDataConfig struct {
	Source            string  `mapstructure:"source" validate:"required,marketsource"`
	URL               string  `mapstructure:"url" validate:"omitempty,url"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts     int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	SnapshotTTLHours  int     `mapstructure:"snapshot_ttl_hours" validate:"required,gt=0"`
}

// SchedulerConfig holds cron expressions for background jobs
type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MarketRefresh string `mapstructure:"market_refresh" validate:"omitempty,cron"`
	Retrain       string `mapstructure:"retrain" validate:"omitempty,cron"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health endpoints
type HealthConfig struct {
	Port     int `mapstructure:"port" validate:"required,min=1,max=65535"`
	GRPCPort int `mapstructure:"grpc_port" validate:"omitempty,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// UsesHTTPMarketData reports whether market statistics come from the HTTP feed
func (c *Config) UsesHTTPMarketData() bool {
	return c.MarketData.Source == MarketSourceHTTP
}

// CacheTTL returns the prediction cache TTL
func (p PredictionConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// ItemTimeout returns the per-pair batch timeout
func (p PredictionConfig) ItemTimeout() time.Duration {
	return time.Duration(p.ItemTimeoutSeconds) * time.Second
}

// FetchTimeout returns the per-read store timeout
func (p PredictionConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSeconds) * time.Second
}

// DashboardWindow returns how far back the dashboard summary looks
func (p PredictionConfig) DashboardWindow() time.Duration {
	return time.Duration(p.DashboardWindowDays) * 24 * time.Hour
}

// Timeout returns the HTTP request timeout for the market data feed
func (m MarketDataConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// SnapshotTTL returns how long a market snapshot is served before reload
func (m MarketDataConfig) SnapshotTTL() time.Duration {
	return time.Duration(m.SnapshotTTLHours) * time.Hour
}
