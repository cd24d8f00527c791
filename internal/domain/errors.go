package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownRecipe     = errors.New("unknown recipe")
	ErrDeliveryFailure   = errors.New("alert delivery failed")
	ErrNotImplemented    = errors.New("not implemented")

	// ErrNoRecipeSelected is an invalid transition: start with nothing selected.
	ErrNoRecipeSelected = fmt.Errorf("no food selected: %w", ErrInvalidTransition)
)
