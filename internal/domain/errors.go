package domain

import "fmt"

// ValidationError rejects bad input before it reaches the store.
// Currently the only validated rule is a non-blank title.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrBlankTitle is the validation failure for an empty or
// whitespace-only title on create and update.
func ErrBlankTitle() *ValidationError {
	return &ValidationError{Field: "title", Message: "must not be blank"}
}

// NotFoundError reports an operation referencing a task id that does
// not exist in the store.
type NotFoundError struct {
	ID uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task with ID %d not found", e.ID)
}

// SyncError wraps a failure of the remote-feed batch: network error,
// non-2xx status, or malformed payload. Records inserted before the
// failure are retained.
type SyncError struct {
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sync failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("sync failed: %s", e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}
