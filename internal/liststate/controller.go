package liststate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// DefaultSearchDebounce is the quiet period before a search term is sent.
const DefaultSearchDebounce = 200 * time.Millisecond

// Config parametrizes a controller for one screen.
type Config struct {
	// Name identifies the screen in logs, metrics and reload topics.
	Name string
	// PageSize of zero requests the whole collection without pagination.
	PageSize    int
	Select      Projection
	DefaultSort Sort
	// ReloadTopic defaults to Name.
	ReloadTopic    string
	SearchDebounce time.Duration
	DeletePrompt   Prompt
	UpdatePrompt   Prompt
}

// Deps are the collaborators of a controller. Service, Navigator and
// Confirmer are required.
type Deps[T Record] struct {
	Service     DataService[T]
	Navigator   Navigator
	Confirmer   Confirmer
	Notifier    Notifier
	Busy        Busy
	Permissions Permissions
	Reload      ReloadSource
	Publisher   ReloadPublisher
	Observer    Observer
	Logger      *slog.Logger
}

// Row is a record as displayed, with its transient selection flag.
type Row[T Record] struct {
	Record   T
	Selected bool
}

// Affordances are the permission gated actions of the screen.
type Affordances struct {
	Create bool
	Edit   bool
	Delete bool
}

// View is a consistent snapshot of the controller state for rendering.
type View[T Record] struct {
	Rows          []Row[T]
	Count         int
	Page          int
	PageSize      int
	TotalPages    int
	SearchTerm    string
	Searching     bool
	Sort          Sort
	ActiveSort    string
	Filter        Filter
	ActiveFilters map[string]string
	SelectedCount int
	AllSelected   bool
	Phase         Phase
	Loaded        bool
	Affordances   Affordances
}

// Controller keeps a paginated, searchable, sortable, filterable and
// multi-selectable collection view consistent across asynchronous fetches,
// page navigation and reload signals.
type Controller[T Record] struct {
	cfg       Config
	svc       DataService[T]
	nav       Navigator
	confirm   Confirmer
	notify    Notifier
	busy      Busy
	perms     Permissions
	reload    ReloadSource
	publisher ReloadPublisher
	observer  Observer
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	bag    Bag

	mu       sync.Mutex
	disposed bool

	routed    bool
	routePage int
	page      int
	pageSize  int

	sort          Sort
	filter        Filter
	activeSort    string
	activeFilters map[string]string

	rows      []Row[T]
	count     int
	loaded    bool
	held      []T
	heldCount int
	heldPage  int

	searchTerm    string
	searchResults []T

	selection *SelectionSet
	phase     Phase

	// token of the latest visible-list producer; older responses are stale
	token uint64

	reloadQueued bool
	reloading    bool

	debounceSeq  uint64
	debouncing   bool
	debounceStop func() bool
	pendingTerm  string
	lastTerm     string
	termEmitted  bool

	activity int
	idle     chan struct{}
}

// New builds a controller. Call Start to subscribe to reload signals and
// Dispose when the view goes away.
func New[T Record](cfg Config, deps Deps[T]) (*Controller[T], error) {
	if deps.Service == nil {
		return nil, errors.New("liststate: data service required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("liststate: navigator required")
	}
	if deps.Confirmer == nil {
		return nil, errors.New("liststate: confirmer required")
	}
	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("liststate: invalid page size %d", cfg.PageSize)
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = DefaultSearchDebounce
	}
	if cfg.ReloadTopic == "" {
		cfg.ReloadTopic = cfg.Name
	}
	if cfg.DefaultSort == nil {
		cfg.DefaultSort = Sort{"createdAt": SortDesc}
	}
	if cfg.DeletePrompt.Title == "" {
		cfg.DeletePrompt = Prompt{Title: "Confirm Delete", Message: "Are you sure you want delete this data?"}
	}
	if cfg.UpdatePrompt.Title == "" {
		cfg.UpdatePrompt = Prompt{Title: "Confirm Edit", Message: "Are you sure you want edit this data?"}
	}

	c := &Controller[T]{
		cfg:       cfg,
		svc:       deps.Service,
		nav:       deps.Navigator,
		confirm:   deps.Confirmer,
		notify:    deps.Notifier,
		busy:      deps.Busy,
		perms:     deps.Permissions,
		reload:    deps.Reload,
		publisher: deps.Publisher,
		observer:  deps.Observer,
		logger:    deps.Logger,
		page:      1,
		pageSize:  cfg.PageSize,
		sort:      cfg.DefaultSort.clone(),
		selection: NewSelectionSet(),
	}
	if c.notify == nil {
		c.notify = nopNotifier{}
	}
	if c.busy == nil {
		c.busy = nopBusy{}
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("screen", cfg.Name))
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Start subscribes to reload signals. Each signal re-fetches the current view.
func (c *Controller[T]) Start() {
	if c.reload == nil {
		return
	}
	unsubscribe := c.reload.Subscribe(c.cfg.ReloadTopic, c.signalReload)
	c.bag.Add(unsubscribe)
}

// signalReload queues a re-fetch and returns without waiting for it, so a
// publisher is never held up by its subscribers. One worker per controller
// runs the fetches; signals arriving while it is busy fold into one more.
func (c *Controller[T]) signalReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.reloadQueued = true
	if c.reloading {
		return
	}
	c.reloading = true
	c.beginLocked()
	go c.reloadLoop()
}

func (c *Controller[T]) reloadLoop() {
	for {
		c.mu.Lock()
		if !c.reloadQueued || c.disposed {
			c.reloading = false
			c.endLocked()
			c.mu.Unlock()
			return
		}
		c.reloadQueued = false
		c.mu.Unlock()

		if err := c.Reload(c.ctx); err != nil && !errors.Is(err, ErrDisposed) && !errors.Is(err, context.Canceled) {
			c.logger.Warn("reload signal fetch", slog.Any("error", err))
		}
	}
}

// Dispose releases every subscription and timer. Responses arriving later
// are dropped.
func (c *Controller[T]) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	if c.debouncing {
		c.debounceStop()
		c.debouncing = false
		c.endLocked()
	}
	c.mu.Unlock()

	c.cancel()
	c.bag.Release()
}

// Disposed reports whether Dispose ran.
func (c *Controller[T]) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Context is cancelled when the controller is disposed.
func (c *Controller[T]) Context() context.Context {
	return c.ctx
}

// OnPageParam is the page query parameter subscription. It fetches when the
// parameter changes and on the first delivery; repeated values are ignored.
func (c *Controller[T]) OnPageParam(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.routed && c.routePage == page {
		c.mu.Unlock()
		return nil
	}
	c.routed = true
	c.routePage = page
	c.page = page
	c.mu.Unlock()
	return c.loadPage(ctx)
}

// ChangePage only writes the page parameter; OnPageParam does the fetch.
func (c *Controller[T]) ChangePage(page int) {
	if page < 1 {
		page = 1
	}
	c.nav.Navigate(page)
}

// Reload re-fetches the current view unconditionally.
func (c *Controller[T]) Reload(ctx context.Context) error {
	return c.loadPage(ctx)
}

// Sort replaces the sort order and refreshes from the first page.
func (c *Controller[T]) Sort(ctx context.Context, field string, dir int) error {
	if dir != SortAsc {
		dir = SortDesc
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.sort = Sort{field: dir}
	c.activeSort = fmt.Sprintf("%s:%d", field, dir)
	page := c.page
	c.mu.Unlock()
	return c.refreshFromFirstPage(ctx, page)
}

// ApplyFilter merges key=value into the filter and refreshes from the first
// page. A nil value removes the key.
func (c *Controller[T]) ApplyFilter(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	next := c.filter.clone()
	if next == nil {
		next = Filter{}
	}
	if c.activeFilters == nil {
		c.activeFilters = make(map[string]string)
	}
	if value == nil {
		delete(next, key)
		delete(c.activeFilters, key)
	} else {
		next[key] = value
		c.activeFilters[key] = fmt.Sprint(value)
	}
	if len(next) == 0 {
		next = nil
	}
	c.filter = next
	page := c.page
	c.mu.Unlock()
	return c.refreshFromFirstPage(ctx, page)
}

// ApplyDateRange filters field between from and to, both inclusive.
func (c *Controller[T]) ApplyDateRange(ctx context.Context, field string, from, to time.Time) error {
	if from.IsZero() && to.IsZero() {
		return c.ApplyFilter(ctx, field, nil)
	}
	return c.ApplyFilter(ctx, field, DateRange(from, to))
}

// SetPageSize changes the page size and refreshes from the first page.
func (c *Controller[T]) SetPageSize(ctx context.Context, size int) error {
	if size < 0 {
		return fmt.Errorf("liststate: invalid page size %d", size)
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.pageSize = size
	page := c.page
	c.mu.Unlock()
	return c.refreshFromFirstPage(ctx, page)
}

// ClearQuery restores the default sort, drops every filter and refreshes
// from the first page.
func (c *Controller[T]) ClearQuery(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.sort = c.cfg.DefaultSort.clone()
	c.activeSort = ""
	c.filter = nil
	c.activeFilters = nil
	page := c.page
	c.mu.Unlock()
	return c.refreshFromFirstPage(ctx, page)
}

// refreshFromFirstPage navigates to page 1 when away from it, otherwise it
// fetches directly. Never both.
func (c *Controller[T]) refreshFromFirstPage(ctx context.Context, page int) error {
	if page > 1 {
		c.nav.Navigate(1)
		return nil
	}
	return c.loadPage(ctx)
}

// invalidate broadcasts a reload for the screen topic. Subscribers, this
// controller included, re-fetch. Without a publisher it fetches directly.
func (c *Controller[T]) invalidate(ctx context.Context, _ int) error {
	if c.publisher == nil || c.reload == nil {
		return c.loadPage(ctx)
	}
	if err := c.publisher.Publish(ctx, c.cfg.ReloadTopic); err != nil {
		c.logger.Warn("publish reload", slog.Any("error", err))
		return c.loadPage(ctx)
	}
	return nil
}

func (c *Controller[T]) loadPage(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.token++
	token := c.token
	q := c.queryLocked(c.page)
	term := c.searchTerm
	page := c.page
	c.beginLocked()
	c.mu.Unlock()
	defer c.end()

	c.busy.Show()
	start := time.Now()
	res, err := c.svc.FetchList(ctx, q, term)
	c.busy.Hide()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if token != c.token {
		c.mu.Unlock()
		c.observer.StaleDiscarded(c.cfg.Name)
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		c.observer.FetchCompleted(c.cfg.Name, "failed", time.Since(start))
		c.logger.Error("fetch list", slog.Int("page", page), slog.Any("error", err))
		return fmt.Errorf("liststate: fetch %s page %d: %w", c.cfg.Name, page, err)
	}
	if !res.Success {
		c.mu.Unlock()
		c.observer.FetchCompleted(c.cfg.Name, "rejected", time.Since(start))
		c.notify.Warn(res.Message)
		return &RejectedError{Op: "fetch", Message: res.Message}
	}

	c.setRowsLocked(res.Data, res.Count)
	if term == "" {
		c.held = res.Data
		c.heldCount = res.Count
		c.heldPage = page
	} else {
		c.searchResults = res.Data
	}
	c.loaded = true
	c.mu.Unlock()
	c.observer.FetchCompleted(c.cfg.Name, "ok", time.Since(start))
	return nil
}

// queryLocked builds the query for the 1-based page.
func (c *Controller[T]) queryLocked(page int) Query {
	q := Query{
		Filter: c.filter.clone(),
		Select: c.cfg.Select,
		Sort:   c.sort.clone(),
	}
	if c.pageSize > 0 {
		q.Pagination = &Pagination{PageSize: c.pageSize, CurrentPage: page - 1}
	}
	return q
}

func (c *Controller[T]) setRowsLocked(data []T, count int) {
	rows := make([]Row[T], len(data))
	for i, r := range data {
		rows[i] = Row[T]{Record: r, Selected: c.selection.Has(r.RecordID())}
	}
	c.rows = rows
	c.count = count
}

func (c *Controller[T]) remarkLocked() {
	for i := range c.rows {
		c.rows[i].Selected = c.selection.Has(c.rows[i].Record.RecordID())
	}
}

// Toggle selects or deselects a single record.
func (c *Controller[T]) Toggle(id string, checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if checked {
		c.selection.Add(id)
	} else {
		c.selection.Remove(id)
	}
	c.remarkLocked()
}

// SelectAll adds or removes exactly the visible ids. Ids selected on other
// pages are kept.
func (c *Controller[T]) SelectAll(checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.rows))
	for i, r := range c.rows {
		ids[i] = r.Record.RecordID()
	}
	if checked {
		c.selection.Merge(ids)
	} else {
		for _, id := range ids {
			c.selection.Remove(id)
		}
	}
	c.remarkLocked()
}

// AllSelected is true when there are visible rows and all of them are
// selected.
func (c *Controller[T]) AllSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allSelectedLocked()
}

func (c *Controller[T]) allSelectedLocked() bool {
	if len(c.rows) == 0 {
		return false
	}
	for _, r := range c.rows {
		if !r.Selected {
			return false
		}
	}
	return true
}

// SelectedIDs returns the cross-page selection.
func (c *Controller[T]) SelectedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.IDs()
}

// Affordances reports which actions the signed-in admin may take.
func (c *Controller[T]) Affordances() Affordances {
	if c.perms == nil {
		return Affordances{}
	}
	return Affordances{
		Create: c.perms.Has(PermCreate),
		Edit:   c.perms.Has(PermEdit),
		Delete: c.perms.Has(PermDelete),
	}
}

// View returns a snapshot of the current state.
func (c *Controller[T]) View() View[T] {
	aff := c.Affordances()
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]Row[T], len(c.rows))
	copy(rows, c.rows)
	var active map[string]string
	if len(c.activeFilters) > 0 {
		active = make(map[string]string, len(c.activeFilters))
		for k, v := range c.activeFilters {
			active[k] = v
		}
	}
	totalPages := 1
	if c.pageSize > 0 && c.count > 0 {
		totalPages = int(math.Ceil(float64(c.count) / float64(c.pageSize)))
	}
	return View[T]{
		Rows:          rows,
		Count:         c.count,
		Page:          c.page,
		PageSize:      c.pageSize,
		TotalPages:    totalPages,
		SearchTerm:    c.searchTerm,
		Searching:     c.searchTerm != "",
		Sort:          c.sort.clone(),
		ActiveSort:    c.activeSort,
		Filter:        c.filter.clone(),
		ActiveFilters: active,
		SelectedCount: c.selection.Len(),
		AllSelected:   c.allSelectedLocked(),
		Phase:         c.phase,
		Loaded:        c.loaded,
		Affordances:   aff,
	}
}

// Settle blocks until no search is pending and no fetch or bulk call is in
// flight. A bulk action waiting for confirmation counts as settled.
func (c *Controller[T]) Settle(ctx context.Context) error {
	c.mu.Lock()
	if c.activity == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller[T]) beginLocked() {
	if c.activity == 0 {
		c.idle = make(chan struct{})
	}
	c.activity++
}

func (c *Controller[T]) endLocked() {
	if c.activity == 0 {
		return
	}
	c.activity--
	if c.activity == 0 {
		close(c.idle)
	}
}

func (c *Controller[T]) end() {
	c.mu.Lock()
	c.endLocked()
	c.mu.Unlock()
}
