package reports

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any *NotFoundError via errors.Is.
var ErrNotFound = &NotFoundError{}

// NotFoundError reports an update aimed at an id that is not in the cache.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("report not found: %s", e.ID)
	}
	return "report not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Messages recorded in State.Err, prefixed to the cause.
const (
	msgAdd       = "failed to add report"
	msgUpdate    = "failed to update report"
	msgLoad      = "failed to load reports"
	msgDelete    = "failed to delete report"
	msgRehydrate = "failed to rehydrate reports"
)
