package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrForecastClosed        = errors.New("forecast window closed")
	ErrInvalidTransition     = errors.New("invalid pool state transition")
)
