package console

import "errors"

var (
	ErrUnknownCollection = errors.New("console: unknown collection")
	ErrRecordNotFound    = errors.New("console: record not found")
	ErrNothingToExport   = errors.New("console: no data to export")
	ErrNotAuthenticated  = errors.New("console: not authenticated")
	ErrInvalidPassword   = errors.New("console: invalid password")
	ErrCancelled         = errors.New("console: cancelled by operator")
	ErrReadOnly          = errors.New("console: collection is read-only")

	errMissingAPI = errors.New("console: api not configured")
)
