package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingUser   = fmt.Errorf("no user id configured")

	// Catalog and backend errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrNotFound           = fmt.Errorf("not found")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Domain errors
	ErrUnidentifiable = fmt.Errorf("record has no resolvable id or media type")
	ErrEmptyQuery     = fmt.Errorf("empty search query")
	ErrNoRows         = fmt.Errorf("no rows could be composed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
