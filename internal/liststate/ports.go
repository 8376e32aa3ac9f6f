package liststate

import (
	"context"
	"time"
)

// Record is a backend entity that can be listed and selected.
type Record interface {
	RecordID() string
}

// Page is the data service reply for a list fetch.
type Page[T Record] struct {
	Success bool
	Message string
	Data    []T
	Count   int
}

// Result is the data service reply for a bulk mutation.
type Result struct {
	Success bool
	Message string
}

// Patch is the field update applied by a bulk update.
type Patch map[string]any

// DataService is the backend collaborator for one entity type. An empty term
// means no search.
type DataService[T Record] interface {
	FetchList(ctx context.Context, q Query, term string) (Page[T], error)
	BulkDelete(ctx context.Context, ids []string) (Result, error)
	BulkUpdate(ctx context.Context, ids []string, patch Patch) (Result, error)
}

// Permission is a capability checked before showing or running an action.
type Permission string

const (
	PermCreate Permission = "create"
	PermEdit   Permission = "edit"
	PermDelete Permission = "delete"
)

// Permissions describes the signed-in admin.
type Permissions interface {
	AdminID() string
	Role() string
	Has(p Permission) bool
}

// Notifier surfaces user facing messages.
type Notifier interface {
	Success(message string)
	Warn(message string)
}

// Prompt is the content of a yes/no confirmation.
type Prompt struct {
	Title   string
	Message string
}

// Confirmer asks the user to accept or decline a prompt.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// Navigator writes the page query parameter. Reading it back is done by
// calling Controller.OnPageParam when the parameter changes.
type Navigator interface {
	Navigate(page int)
}

// Busy is the busy indicator.
type Busy interface {
	Show()
	Hide()
}

// ReloadSource delivers reload signals for a topic until unsubscribed.
type ReloadSource interface {
	Subscribe(topic string, fn func()) (unsubscribe func())
}

// ReloadPublisher broadcasts a reload signal.
type ReloadPublisher interface {
	Publish(ctx context.Context, topic string) error
}

// Observer receives controller events for metrics.
type Observer interface {
	FetchCompleted(screen, outcome string, elapsed time.Duration)
	StaleDiscarded(screen string)
	BulkTransition(screen string, from, to Phase)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Warn(string) {}

type nopBusy struct{}

func (nopBusy) Show() {}
func (nopBusy) Hide() {}

type nopObserver struct{}

func (nopObserver) FetchCompleted(string, string, time.Duration) {}
func (nopObserver) StaleDiscarded(string) {}
func (nopObserver) BulkTransition(string, Phase, Phase) {}
