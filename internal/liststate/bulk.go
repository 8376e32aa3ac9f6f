package liststate

import (
	"context"
	"fmt"
	"log/slog"
)

// Phase is the state of the bulk action machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConfirming
	PhaseInFlight
	PhaseApplied
	PhaseRejected
	PhaseFailed
)

var phaseNames = [...]string{"idle", "confirming", "in_flight", "applied", "rejected", "failed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Outcome is how a bulk action ended.
type Outcome int

const (
	OutcomeDeclined Outcome = iota
	OutcomeApplied
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "declined"
	}
}

// Applied, Rejected and Failed are transient: the machine reports them and
// returns to Idle right away.
var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseConfirming},
	PhaseConfirming: {PhaseIdle, PhaseInFlight},
	PhaseInFlight:   {PhaseApplied, PhaseRejected, PhaseFailed},
	PhaseApplied:    {PhaseIdle},
	PhaseRejected:   {PhaseIdle},
	PhaseFailed:     {PhaseIdle},
}

func canTransition(from, to Phase) bool {
	for _, p := range phaseTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

type bulkKind struct {
	op     string
	perm   Permission
	prompt Prompt
	call   func(ctx context.Context, ids []string) (Result, error)
	after  func(ctx context.Context, page int) error
}

// DeleteSelected deletes every selected record after confirmation.
func (c *Controller[T]) DeleteSelected(ctx context.Context) (Outcome, error) {
	return c.runBulk(ctx, bulkKind{
		op:     "delete",
		perm:   PermDelete,
		prompt: c.cfg.DeletePrompt,
		call:   c.svc.BulkDelete,
		after:  c.refreshFromFirstPage,
	})
}

// UpdateSelected applies patch to every selected record after confirmation.
func (c *Controller[T]) UpdateSelected(ctx context.Context, patch Patch) (Outcome, error) {
	return c.runBulk(ctx, bulkKind{
		op:     "update",
		perm:   PermEdit,
		prompt: c.cfg.UpdatePrompt,
		call: func(ctx context.Context, ids []string) (Result, error) {
			return c.svc.BulkUpdate(ctx, ids, patch)
		},
		after: c.invalidate,
	})
}

// BulkPhase returns the current phase of the bulk action machine.
func (c *Controller[T]) BulkPhase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller[T]) runBulk(ctx context.Context, k bulkKind) (Outcome, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return OutcomeDeclined, ErrDisposed
	}
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return OutcomeDeclined, ErrBulkInProgress
	}
	if c.perms != nil && !c.perms.Has(k.perm) {
		c.mu.Unlock()
		return OutcomeDeclined, ErrNotPermitted
	}
	ids := c.selection.IDs()
	if len(ids) == 0 {
		c.mu.Unlock()
		return OutcomeDeclined, ErrEmptySelection
	}
	c.transitionLocked(PhaseConfirming)
	c.mu.Unlock()

	accepted, err := c.confirm.Confirm(ctx, k.prompt)
	c.mu.Lock()
	if err != nil || !accepted || c.disposed {
		c.transitionLocked(PhaseIdle)
		disposed := c.disposed
		c.mu.Unlock()
		if disposed {
			return OutcomeDeclined, ErrDisposed
		}
		if err != nil {
			return OutcomeDeclined, fmt.Errorf("liststate: confirm %s: %w", k.op, err)
		}
		return OutcomeDeclined, nil
	}
	c.transitionLocked(PhaseInFlight)
	c.beginLocked()
	c.mu.Unlock()
	defer c.end()

	c.busy.Show()
	res, err := k.call(ctx, ids)
	c.busy.Hide()

	c.mu.Lock()
	switch {
	case err != nil:
		c.transitionLocked(PhaseFailed)
		c.transitionLocked(PhaseIdle)
		c.mu.Unlock()
		c.logger.Error("bulk action failed",
			slog.String("screen", c.cfg.Name),
			slog.String("op", k.op),
			slog.Int("ids", len(ids)),
			slog.Any("error", err))
		return OutcomeFailed, fmt.Errorf("liststate: %s %d records: %w", k.op, len(ids), err)
	case !res.Success:
		c.transitionLocked(PhaseRejected)
		c.transitionLocked(PhaseIdle)
		c.mu.Unlock()
		c.notify.Warn(res.Message)
		return OutcomeRejected, &RejectedError{Op: k.op, Message: res.Message}
	}

	c.transitionLocked(PhaseApplied)
	c.selection.Clear()
	c.remarkLocked()
	c.transitionLocked(PhaseIdle)
	page := c.page
	c.mu.Unlock()

	c.notify.Success(res.Message)
	if err := k.after(ctx, page); err != nil {
		return OutcomeApplied, err
	}
	return OutcomeApplied, nil
}

func (c *Controller[T]) transitionLocked(to Phase) {
	from := c.phase
	if !canTransition(from, to) {
		panic(fmt.Sprintf("liststate: invalid bulk transition %s -> %s", from, to))
	}
	c.phase = to
	c.observer.BulkTransition(c.cfg.Name, from, to)
}
