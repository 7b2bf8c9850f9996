package apperrors

import "errors"

var (
	// ErrInjectionDetected is returned when a query fragment is detected as a
	// SQL injection attempt. Callers match with errors.Is; the message is
	// stable because upstream layers grep for it when classifying failures.
	ErrInjectionDetected = errors.New("SQL injection detected in WHERE clause")

	ErrPoolInactive    = errors.New("database connection pool is not active")
	ErrNotFound        = errors.New("not found")
	ErrEmptyResult     = errors.New("query returned no data")
	ErrMalformedData   = errors.New("incorrect data format, aborting process")
	ErrInvalidTrigger  = errors.New("invalid trigger definition")
	ErrMissingArgument = errors.New("missing required argument")
)
