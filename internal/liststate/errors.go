package liststate

import "errors"

var (
	// ErrDisposed is returned by operations on a disposed controller.
	ErrDisposed = errors.New("liststate: controller disposed")
	// ErrBulkInProgress is returned when a bulk action is already running.
	ErrBulkInProgress = errors.New("liststate: bulk action in progress")
	// ErrEmptySelection is returned by bulk actions with nothing selected.
	ErrEmptySelection = errors.New("liststate: nothing selected")
	// ErrNotPermitted is returned when the admin lacks the capability.
	ErrNotPermitted = errors.New("liststate: not permitted")
)

// RejectedError is a business rejection reported by the backend with
// success=false. The view is left untouched.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "liststate: " + e.Op + " rejected"
	}
	return "liststate: " + e.Op + " rejected: " + e.Message
}
