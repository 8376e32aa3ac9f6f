package listview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

// ErrNoPrompt is returned when an answer does not match the open prompt.
var ErrNoPrompt = errors.New("listview: no such prompt")

// PendingPrompt is a confirmation waiting for the browser.
type PendingPrompt struct {
	ID      string
	Title   string
	Message string
}

// Dialog parks a confirmation until the browser answers it. It implements
// liststate.Confirmer for one controller. Unanswered prompts are declined
// after the timeout.
type Dialog struct {
	timeout time.Duration

	mu      sync.Mutex
	pending *PendingPrompt
	answer  chan bool
	changed chan struct{}
}

// NewDialog builds a dialog broker.
func NewDialog(timeout time.Duration) *Dialog {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Dialog{timeout: timeout, changed: make(chan struct{})}
}

// Confirm opens p and blocks until it is answered, declined by timeout or
// ctx ends.
func (d *Dialog) Confirm(ctx context.Context, p liststate.Prompt) (bool, error) {
	answer := make(chan bool, 1)
	d.mu.Lock()
	if d.pending != nil {
		d.mu.Unlock()
		return false, liststate.ErrBulkInProgress
	}
	d.pending = &PendingPrompt{ID: uuid.NewString(), Title: p.Title, Message: p.Message}
	d.answer = answer
	d.broadcastLocked()
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.pending = nil
		d.answer = nil
		d.broadcastLocked()
		d.mu.Unlock()
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case ok := <-answer:
		return ok, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Pending returns the open prompt, if any.
func (d *Dialog) Pending() (PendingPrompt, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return PendingPrompt{}, false
	}
	return *d.pending, true
}

// Answer resolves the prompt with the given id.
func (d *Dialog) Answer(id string, ok bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil || d.pending.ID != id {
		return ErrNoPrompt
	}
	select {
	case d.answer <- ok:
	default:
	}
	return nil
}

// Changed is closed the next time a prompt opens or closes.
func (d *Dialog) Changed() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changed
}

func (d *Dialog) broadcastLocked() {
	close(d.changed)
	d.changed = make(chan struct{})
}

var _ liststate.Confirmer = (*Dialog)(nil)
