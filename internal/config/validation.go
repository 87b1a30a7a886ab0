package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/win-probability/internal/ml"
)

// Market data sources
const (
	MarketSourcePostgres = "postgres"
	MarketSourceHTTP     = "http"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	mustRegister(v, "environment", validateEnvironment)
	mustRegister(v, "loglevel", validateLogLevel)
	mustRegister(v, "backends", validateBackends)
	mustRegister(v, "weighting", validateWeighting)
	mustRegister(v, "marketsource", validateMarketSource)
	mustRegister(v, "cron", validateCron)

	return &CustomValidator{validator: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateBackends checks every configured backend has an implementation
func validateBackends(fl validator.FieldLevel) bool {
	backends, ok := fl.Field().Interface().([]string)
	if !ok || len(backends) == 0 {
		return false
	}

	known := make(map[string]bool)
	for _, name := range ml.Backends() {
		known[name] = true
	}
	for _, b := range backends {
		if !known[b] {
			return false
		}
	}
	return true
}

// validateWeighting validates the ensemble weighting mode
func validateWeighting(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ml.WeightingMean, ml.WeightingAUC:
		return true
	default:
		return false
	}
}

// validateMarketSource validates the market data source
func validateMarketSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case MarketSourcePostgres, MarketSourceHTTP:
		return true
	default:
		return false
	}
}

// validateCron validates a five-field cron expression or descriptor
func validateCron(fl validator.FieldLevel) bool {
	_, err := cronParser.Parse(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	// Validate production environment requirements
	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	// Validate connection pool settings
	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.UsesHTTPMarketData() && cfg.MarketData.URL == "" {
		return fmt.Errorf("market_data.url is required when market_data.source is '%s'", MarketSourceHTTP)
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.MarketRefresh == "" && cfg.Scheduler.Retrain == "" {
		return fmt.Errorf("scheduler is enabled but no job schedule is configured")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Health.Port {
		return fmt.Errorf("metrics.port and health.port must differ")
	}
	if cfg.Health.GRPCPort != 0 && cfg.Health.GRPCPort == cfg.Health.Port {
		return fmt.Errorf("health.grpc_port and health.port must differ")
	}

	// A holdout must leave at least a few rows of each class for training
	if cfg.Model.HoldoutFraction > 0.5 {
		return fmt.Errorf("model.holdout_fraction cannot exceed 0.5")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "backends":
			errMsg += fmt.Sprintf("- Field '%s' contains unknown backends %v, known: %v\n", field, value, ml.Backends())
		case "weighting":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: %s, %s\n", field, ml.WeightingMean, ml.WeightingAUC)
		case "marketsource":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: %s, %s\n", field, MarketSourcePostgres, MarketSourceHTTP)
		case "cron":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid cron expression, got '%v'\n", field, value)
		case "unique":
			errMsg += fmt.Sprintf("- Field '%s' must not contain duplicates\n", field)
		default:
			errMsg += fmt.Sprintf("- Field '%s' validation failed on '%s' tag\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
