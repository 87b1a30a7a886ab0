package service

import "errors"

var (
	// ErrTrainingInProgress is returned when a training run is already underway
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrStoreNotConfigured is returned when an operation needs a store that was not provided
	ErrStoreNotConfigured = errors.New("store not configured")
)
