package domain

import "errors"

var (
	ErrValidation    = errors.New("validation error")
	ErrInvalidConfig = errors.New("invalid geofence config")
	ErrDispatch      = errors.New("dispatch failure")
)
