package apperrors

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrScanInProgress  = errors.New("plugin scan already in progress")
	ErrHostStopping    = errors.New("host is stopping")
	ErrNoActiveService = errors.New("no enabled tracking service")
)
