package liststate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string
	Name string
}

func (i item) RecordID() string { return i.ID }

func items(prefix string, n int) []item {
	out := make([]item, n)
	for i := range out {
		out[i] = item{ID: fmt.Sprintf("%s%d", prefix, i+1), Name: fmt.Sprintf("%s %d", prefix, i+1)}
	}
	return out
}

func ids(list []item) []string {
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.ID
	}
	return out
}

type fetchCall struct {
	Query Query
	Term  string
}

type bulkCall struct {
	IDs   []string
	Patch Patch
}

// fakeService serves pages of 10 per page number from a fixed catalogue
// unless fetch is overridden.
type fakeService struct {
	mu      sync.Mutex
	calls   []fetchCall
	fetch   func(ctx context.Context, q Query, term string) (Page[item], error)
	deletes []bulkCall
	updates []bulkCall
	result  Result
	bulkErr error
}

func newFakeService() *fakeService {
	return &fakeService{result: Result{Success: true, Message: "done"}}
}

func (f *fakeService) FetchList(ctx context.Context, q Query, term string) (Page[item], error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{Query: q, Term: term})
	fetch := f.fetch
	f.mu.Unlock()
	if fetch != nil {
		return fetch(ctx, q, term)
	}
	page := 0
	if q.Pagination != nil {
		page = q.Pagination.CurrentPage
	}
	prefix := fmt.Sprintf("p%d-", page+1)
	if term != "" {
		prefix = term + "-"
	}
	return Page[item]{Success: true, Data: items(prefix, 10), Count: 42}, nil
}

func (f *fakeService) BulkDelete(ctx context.Context, ids []string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, bulkCall{IDs: ids})
	return f.result, f.bulkErr
}

func (f *fakeService) BulkUpdate(ctx context.Context, ids []string, patch Patch) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, bulkCall{IDs: ids, Patch: patch})
	return f.result, f.bulkErr
}

func (f *fakeService) fetchCalls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fetchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeNavigator struct {
	mu    sync.Mutex
	pages []int
}

func (n *fakeNavigator) Navigate(page int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pages = append(n.pages, page)
}

func (n *fakeNavigator) navigations() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int, len(n.pages))
	copy(out, n.pages)
	return out
}

type fakeConfirmer struct {
	mu      sync.Mutex
	accept  bool
	err     error
	prompts []Prompt
}

func (c *fakeConfirmer) Confirm(ctx context.Context, p Prompt) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, p)
	return c.accept, c.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	warnings  []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, msg)
}

type staticPerms map[Permission]bool

func (p staticPerms) AdminID() string         { return "admin-1" }
func (p staticPerms) Role() string            { return "admin" }
func (p staticPerms) Has(perm Permission) bool { return p[perm] }

type recordingObserver struct {
	mu          sync.Mutex
	stale       int
	outcomes    []string
	transitions []Phase
}

func (o *recordingObserver) FetchCompleted(screen, outcome string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) StaleDiscarded(screen string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stale++
}

func (o *recordingObserver) BulkTransition(screen string, from, to Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, to)
}

func (o *recordingObserver) staleCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stale
}

type fakeReload struct {
	mu           sync.Mutex
	subs         map[string][]func()
	unsubscribed int
	published    []string
}

func newFakeReload() *fakeReload {
	return &fakeReload{subs: make(map[string][]func())}
}

func (r *fakeReload) Subscribe(topic string, fn func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[topic] = append(r.subs[topic], fn)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.unsubscribed++
		delete(r.subs, topic)
	}
}

func (r *fakeReload) Publish(ctx context.Context, topic string) error {
	r.mu.Lock()
	r.published = append(r.published, topic)
	subs := append([]func(){}, r.subs[topic]...)
	r.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
	return nil
}

type harness struct {
	ctrl     *Controller[item]
	svc      *fakeService
	nav      *fakeNavigator
	confirm  *fakeConfirmer
	notify   *recordingNotifier
	observer *recordingObserver
	reload   *fakeReload
}

func newHarness(t *testing.T, mutate ...func(*Config, *Deps[item])) *harness {
	t.Helper()
	h := &harness{
		svc:      newFakeService(),
		nav:      &fakeNavigator{},
		confirm:  &fakeConfirmer{accept: true},
		notify:   &recordingNotifier{},
		observer: &recordingObserver{},
		reload:   newFakeReload(),
	}
	cfg := Config{
		Name:           "zones",
		PageSize:       10,
		Select:         Projection{"name": 1, "createdAt": 1},
		SearchDebounce: 30 * time.Millisecond,
	}
	deps := Deps[item]{
		Service:     h.svc,
		Navigator:   h.nav,
		Confirmer:   h.confirm,
		Notifier:    h.notify,
		Permissions: staticPerms{PermCreate: true, PermEdit: true, PermDelete: true},
		Reload:      h.reload,
		Publisher:   h.reload,
		Observer:    h.observer,
	}
	for _, m := range mutate {
		m(&cfg, &deps)
	}
	ctrl, err := New(cfg, deps)
	require.NoError(t, err)
	ctrl.Start()
	t.Cleanup(ctrl.Dispose)
	h.ctrl = ctrl
	return h
}

func settle(t *testing.T, c *Controller[item]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Settle(ctx))
}
