package task

import "errors"

var (
	// ErrValidation marks malformed input. It is raised before any network
	// call is made.
	ErrValidation = errors.New("invalid task")
	// ErrAuth marks a missing, malformed or expired credential, or a store
	// rejecting the caller.
	ErrAuth = errors.New("unauthorized")
	// ErrStore marks any other store or transport failure.
	ErrStore = errors.New("store failure")
	// ErrNotFound marks a mutation whose target no longer exists.
	ErrNotFound = errors.New("task not found")
)

// Kind returns a short label for the error class, for status lines and log
// attributes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "store"
	}
}
