// Package engine turns raw opportunity and bidder data into win predictions.
package engine

import "errors"

var (
	// ErrInsufficientData indicates too few labeled rows or a single label class
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrModelNotLoaded indicates no model has been trained or loaded yet
	ErrModelNotLoaded = errors.New("model not loaded")
)
