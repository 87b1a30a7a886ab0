// Package ml provides the classifier backends and the ensemble used to score win probability.
package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateLabels indicates the training labels contain a single class
	ErrDegenerateLabels = errors.New("training labels contain a single class")

	// ErrTooFewRows indicates there are not enough rows to fit a backend
	ErrTooFewRows = errors.New("too few training rows")

	// ErrNumericFailure indicates a backend produced non-finite parameters
	ErrNumericFailure = errors.New("numeric failure during fit")

	// ErrAllBackendsFailed indicates no backend could be trained
	ErrAllBackendsFailed = errors.New("all backends failed to train")

	// ErrUnknownBackend indicates a backend name with no registered implementation
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrDimensionMismatch indicates a row width different from the fitted schema
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// FitError records why a single backend failed to train
type FitError struct {
	Backend string
	Err     error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}
