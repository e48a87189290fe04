package core

import "errors"

// Errors
var (
	ErrInvalidVolume = errors.New("invalid volume")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrDuplicateID   = errors.New("duplicate order id")
	ErrInvalidState  = errors.New("invalid order state")
	ErrNotFound      = errors.New("order not found")
)
