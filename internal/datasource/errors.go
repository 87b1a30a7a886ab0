// Package datasource fetches market reference data from external providers.
package datasource

import (
	"errors"
)

// Error codes carried by DataSourceError
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// ErrCircuitOpen is returned while the client refuses requests after repeated failures
var ErrCircuitOpen = errors.New("circuit breaker open")

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) *DataSourceError {
	return &DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether err is a DataSourceError with the given code
func HasCode(err error, code string) bool {
	var dsErr *DataSourceError
	return errors.As(err, &dsErr) && dsErr.Code == code
}
