package listview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/rbac"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
)

// DefaultPageSizes are the page size choices offered on every screen.
var DefaultPageSizes = []int{10, 25, 50, 100}

const dateLayout = "2006-01-02"

var errNoSession = errors.New("listview: session missing")

// Options tune the web flow of every screen.
type Options struct {
	SearchDebounce time.Duration
	DialogTimeout  time.Duration
	// SettleTimeout bounds how long an action waits for its fetch before
	// redirecting.
	SettleTimeout time.Duration
	PageSizes     []int
}

// Deps are shared by every list screen handler.
type Deps struct {
	Logger    *slog.Logger
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Registry  *Registry
	Auth      *rbac.Service
	Reload    liststate.ReloadSource
	Publisher liststate.ReloadPublisher
	Observer  liststate.Observer
	Options   Options
}

// ServiceFactory binds the data service of a screen to a backend token.
type ServiceFactory[T liststate.Record] func(token string) liststate.DataService[T]

// BackendService returns a factory using the REST collection of screen.
func BackendService[T liststate.Record](client *backend.Client, resource string) ServiceFactory[T] {
	return func(token string) liststate.DataService[T] {
		return backend.NewResource[T](client, resource, token)
	}
}

// Handler serves one list screen. State lives in a per-session controller
// held by the registry; every action is a POST followed by a redirect to
// the page parameter.
type Handler[T liststate.Record] struct {
	deps     Deps
	screen   Screen[T]
	services ServiceFactory[T]
	logger   *slog.Logger
}

// NewHandler builds a Handler for screen.
func NewHandler[T liststate.Record](deps Deps, screen Screen[T], services ServiceFactory[T]) *Handler[T] {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Options.SettleTimeout <= 0 {
		deps.Options.SettleTimeout = 5 * time.Second
	}
	if len(deps.Options.PageSizes) == 0 {
		deps.Options.PageSizes = DefaultPageSizes
	}
	return &Handler[T]{
		deps:     deps,
		screen:   screen,
		services: services,
		logger:   deps.Logger.With(slog.String("screen", screen.Name)),
	}
}

// MountRoutes registers the screen routes.
func (h *Handler[T]) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/search", h.search)
	r.Post("/sort", h.sort)
	r.Post("/filter", h.filter)
	r.Post("/page-size", h.pageSize)
	r.Post("/clear", h.clear)
	r.Post("/selection", h.selection)
	r.Post("/bulk/delete", h.bulkDelete)
	r.Post("/bulk/update", h.bulkUpdate)
	r.Post("/confirm", h.confirm)
	r.Post("/reload", h.reload)
}

type livePermissions struct {
	mu sync.RWMutex
	p  rbac.Principal
}

func (l *livePermissions) set(p rbac.Principal) {
	l.mu.Lock()
	l.p = p
	l.mu.Unlock()
}

func (l *livePermissions) AdminID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p.AdminID()
}

func (l *livePermissions) Role() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p.Role()
}

func (l *livePermissions) Has(perm liststate.Permission) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p.Has(perm)
}

type instance[T liststate.Record] struct {
	ctrl    *liststate.Controller[T]
	dialog  *Dialog
	notices *Notices
	nav     *Navigator
	busy    *BusyCounter
	perms   *livePermissions

	mu       sync.Mutex
	bulkDone chan struct{}
}

func (i *instance[T]) Dispose() { i.ctrl.Dispose() }

func (h *Handler[T]) instanceFor(r *http.Request) (*instance[T], error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, errNoSession
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	inst, err := Lookup(h.deps.Registry, sess.ID, h.screen.Name, func() (*instance[T], error) {
		return h.newInstance(rbac.Token(sess))
	})
	if err != nil {
		return nil, err
	}
	inst.perms.set(principal)
	return inst, nil
}

func (h *Handler[T]) newInstance(token string) (*instance[T], error) {
	inst := &instance[T]{
		dialog:  NewDialog(h.deps.Options.DialogTimeout),
		notices: &Notices{},
		nav:     &Navigator{},
		busy:    &BusyCounter{},
		perms:   &livePermissions{},
	}
	cfg := h.screen.Config
	cfg.Name = h.screen.Name
	if cfg.SearchDebounce == 0 {
		cfg.SearchDebounce = h.deps.Options.SearchDebounce
	}
	ctrl, err := liststate.New(cfg, liststate.Deps[T]{
		Service:     h.services(token),
		Navigator:   inst.nav,
		Confirmer:   inst.dialog,
		Notifier:    inst.notices,
		Busy:        inst.busy,
		Permissions: inst.perms,
		Reload:      h.deps.Reload,
		Publisher:   h.deps.Publisher,
		Observer:    h.deps.Observer,
		Logger:      h.deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	ctrl.Start()
	inst.ctrl = ctrl
	return inst, nil
}

func (h *Handler[T]) list(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	inst.nav.Take()
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if err := inst.ctrl.OnPageParam(r.Context(), page); err != nil {
		if h.unauthorized(w, r, err) {
			return
		}
		h.noteFetchError(inst, err)
	}
	h.render(w, r, inst)
}

func (h *Handler[T]) search(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	inst.ctrl.Search(r.PostFormValue("q"))
	h.settle(r, inst)
	h.redirect(w, r, inst)
}

func (h *Handler[T]) sort(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	field := r.PostFormValue("field")
	if !h.screen.sortable(field) {
		http.Error(w, "unknown sort field", http.StatusBadRequest)
		return
	}
	dir := liststate.SortDesc
	if r.FormValue("dir") == "asc" {
		dir = liststate.SortAsc
	}
	h.after(w, r, inst, inst.ctrl.Sort(r.Context(), field, dir))
}

func (h *Handler[T]) filter(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, ok := h.screen.filter(r.PostFormValue("key"))
	if !ok {
		http.Error(w, "unknown filter", http.StatusBadRequest)
		return
	}
	switch f.Kind {
	case FilterDateRange:
		from, errFrom := parseDate(r.PostFormValue("from"))
		to, errTo := parseDate(r.PostFormValue("to"))
		if errFrom != nil || errTo != nil {
			inst.notices.Warn("Please enter dates as YYYY-MM-DD")
			h.redirect(w, r, inst)
			return
		}
		if !to.IsZero() {
			to = to.Add(24*time.Hour - time.Second)
		}
		h.after(w, r, inst, inst.ctrl.ApplyDateRange(r.Context(), f.Key, from, to))
	default:
		value := r.PostFormValue("value")
		if value == "" {
			h.after(w, r, inst, inst.ctrl.ApplyFilter(r.Context(), f.Key, nil))
			return
		}
		if !slices.ContainsFunc(f.Options, func(o Option) bool { return o.Value == value }) {
			http.Error(w, "unknown filter value", http.StatusBadRequest)
			return
		}
		h.after(w, r, inst, inst.ctrl.ApplyFilter(r.Context(), f.Key, value))
	}
}

func (h *Handler[T]) pageSize(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	size, err := strconv.Atoi(r.PostFormValue("size"))
	if err != nil || !slices.Contains(h.deps.Options.PageSizes, size) {
		http.Error(w, "unsupported page size", http.StatusBadRequest)
		return
	}
	h.after(w, r, inst, inst.ctrl.SetPageSize(r.Context(), size))
}

func (h *Handler[T]) clear(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.after(w, r, inst, inst.ctrl.ClearQuery(r.Context()))
}

func (h *Handler[T]) reload(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.after(w, r, inst, inst.ctrl.Reload(r.Context()))
}

func (h *Handler[T]) selection(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	syncSelection(r, inst.ctrl)
	switch r.PostFormValue("op") {
	case "all":
		inst.ctrl.SelectAll(true)
	case "none":
		inst.ctrl.SelectAll(false)
	}
	h.redirect(w, r, inst)
}

func (h *Handler[T]) bulkDelete(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	syncSelection(r, inst.ctrl)
	h.startBulk(w, r, inst, inst.ctrl.DeleteSelected)
}

func (h *Handler[T]) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b, ok := h.screen.bulkUpdate(r.PostFormValue("action"))
	if !ok {
		http.Error(w, "unknown bulk action", http.StatusBadRequest)
		return
	}
	syncSelection(r, inst.ctrl)
	h.startBulk(w, r, inst, func(ctx context.Context) (liststate.Outcome, error) {
		return inst.ctrl.UpdateSelected(ctx, b.Patch)
	})
}

func (h *Handler[T]) confirm(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instanceFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := inst.dialog.Answer(r.PostFormValue("prompt"), r.PostFormValue("answer") == "yes"); err != nil {
		inst.notices.Warn("This confirmation is no longer open")
		h.redirect(w, r, inst)
		return
	}
	inst.mu.Lock()
	done := inst.bulkDone
	inst.mu.Unlock()
	if done != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.deps.Options.SettleTimeout)
		defer cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	h.settle(r, inst)
	h.redirect(w, r, inst)
}

// startBulk runs the action on the controller lifetime so that it outlives
// the request, and returns once the prompt opened or the action finished.
func (h *Handler[T]) startBulk(w http.ResponseWriter, r *http.Request, inst *instance[T], run func(context.Context) (liststate.Outcome, error)) {
	inst.mu.Lock()
	if inst.bulkDone != nil {
		select {
		case <-inst.bulkDone:
		default:
			inst.mu.Unlock()
			inst.notices.Warn("Another action is in progress")
			h.redirect(w, r, inst)
			return
		}
	}
	done := make(chan struct{})
	inst.bulkDone = done
	changed := inst.dialog.Changed()
	inst.mu.Unlock()

	go func() {
		defer close(done)
		outcome, err := run(inst.ctrl.Context())
		h.reportBulk(inst, outcome, err)
	}()

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.Options.SettleTimeout)
	defer cancel()
	select {
	case <-changed:
	case <-done:
	case <-ctx.Done():
	}
	h.redirect(w, r, inst)
}

func (h *Handler[T]) reportBulk(inst *instance[T], outcome liststate.Outcome, err error) {
	var rejected *liststate.RejectedError
	switch {
	case err == nil:
		h.logger.Info("bulk action finished", slog.String("outcome", outcome.String()))
	case errors.Is(err, liststate.ErrEmptySelection):
		inst.notices.Warn("Please select at least one item")
	case errors.Is(err, liststate.ErrNotPermitted):
		inst.notices.Warn("You do not have permission for this action")
	case errors.Is(err, liststate.ErrBulkInProgress):
		inst.notices.Warn("Another action is in progress")
	case errors.As(err, &rejected):
		// the controller already warned with the backend message
	case errors.Is(err, liststate.ErrDisposed), errors.Is(err, context.Canceled):
	case errors.Is(err, backend.ErrUnauthorized):
		inst.notices.Warn("Your session has expired, please sign in again")
	default:
		h.logger.Error("bulk action", slog.String("outcome", outcome.String()), slog.Any("error", err))
		inst.notices.Warn("Something went wrong, please try again")
	}
}

func (h *Handler[T]) after(w http.ResponseWriter, r *http.Request, inst *instance[T], err error) {
	if err != nil {
		if h.unauthorized(w, r, err) {
			return
		}
		h.noteFetchError(inst, err)
	}
	h.redirect(w, r, inst)
}

func (h *Handler[T]) noteFetchError(inst *instance[T], err error) {
	var rejected *liststate.RejectedError
	if errors.As(err, &rejected) || errors.Is(err, liststate.ErrDisposed) {
		return
	}
	inst.notices.Warn("Could not load data, please try again")
}

func (h *Handler[T]) settle(r *http.Request, inst *instance[T]) {
	ctx, cancel := context.WithTimeout(r.Context(), h.deps.Options.SettleTimeout)
	defer cancel()
	if err := inst.ctrl.Settle(ctx); err != nil {
		h.logger.Warn("settle", slog.Any("error", err))
	}
}

func (h *Handler[T]) redirect(w http.ResponseWriter, r *http.Request, inst *instance[T]) {
	page := inst.ctrl.View().Page
	if target, ok := inst.nav.Take(); ok {
		page = target
	}
	http.Redirect(w, r, h.pageURL(page), http.StatusSeeOther)
}

func (h *Handler[T]) pageURL(page int) string {
	return h.screen.Path + "?page=" + strconv.Itoa(page)
}

func (h *Handler[T]) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if h.deps.Auth != nil {
			h.deps.Auth.SignOut(sess)
		}
		sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Your session has expired, please sign in again"})
		h.deps.Registry.DropSession(sess.ID)
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
	return true
}

func (h *Handler[T]) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errNoSession) {
		http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
		return
	}
	h.logger.Error("list screen", slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// syncSelection applies the checkbox state of the rows that were visible
// when the form was rendered.
func syncSelection[T liststate.Record](r *http.Request, ctrl *liststate.Controller[T]) {
	if err := r.ParseForm(); err != nil {
		return
	}
	checked := make(map[string]struct{}, len(r.PostForm["ids"]))
	for _, id := range r.PostForm["ids"] {
		checked[id] = struct{}{}
	}
	for _, id := range r.PostForm["visible"] {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		_, on := checked[id]
		ctrl.Toggle(id, on)
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}
