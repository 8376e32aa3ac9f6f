package listview

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/rbac"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
)

const pagerRadius = 2

// RowView is a rendered row.
type RowView struct {
	ID       string
	Cells    []string
	Selected bool
	EditPath string
}

// ColumnView is a rendered column header.
type ColumnView struct {
	Header  string
	SortKey string
	Active  bool
	Asc     bool
}

// FilterView is a rendered filter control with its current value.
type FilterView struct {
	FilterField
	Value string
	From  string
	To    string
}

// PageData is the data of pages/list.html.
type PageData struct {
	Title       string
	Path        string
	Columns     []ColumnView
	Rows        []RowView
	Count       int
	SearchTerm  string
	Searching   bool
	Selected    int
	AllSelected bool
	Filtered    bool
	Paginated   bool
	PageSize    int
	PageSizes   []int
	Pager       shared.Pagination
	Links       []shared.PageLink
	Filters     []FilterView
	BulkUpdates []BulkUpdate
	Prompt      *PendingPrompt
	Busy        bool
	Phase       string
	CreatePath  string
	Affordances liststate.Affordances
}

func (h *Handler[T]) pageData(inst *instance[T]) PageData {
	v := inst.ctrl.View()
	data := PageData{
		Title:       h.screen.Title,
		Path:        h.screen.Path,
		Count:       v.Count,
		SearchTerm:  v.SearchTerm,
		Searching:   v.Searching,
		Selected:    v.SelectedCount,
		AllSelected: v.AllSelected,
		Filtered:    v.ActiveSort != "" || len(v.ActiveFilters) > 0,
		Paginated:   v.PageSize > 0,
		PageSize:    v.PageSize,
		PageSizes:   h.deps.Options.PageSizes,
		Pager:       shared.NewPagination(v.Page, v.PageSize, v.Count),
		BulkUpdates: h.screen.BulkUpdates,
		Busy:        inst.busy.Active(),
		Phase:       v.Phase.String(),
		CreatePath:  h.screen.CreatePath,
		Affordances: v.Affordances,
	}
	if data.Paginated && !data.Searching {
		data.Links = data.Pager.Links(pagerRadius)
	}
	if p, ok := inst.dialog.Pending(); ok {
		data.Prompt = &p
	}

	for _, c := range h.screen.Columns {
		cv := ColumnView{Header: c.Header, SortKey: c.SortKey}
		if dir, ok := v.Sort[c.SortKey]; ok && c.SortKey != "" && v.ActiveSort != "" {
			cv.Active = true
			cv.Asc = dir == liststate.SortAsc
		}
		data.Columns = append(data.Columns, cv)
	}

	data.Rows = make([]RowView, 0, len(v.Rows))
	for _, row := range v.Rows {
		rv := RowView{ID: row.Record.RecordID(), Selected: row.Selected}
		for _, c := range h.screen.Columns {
			rv.Cells = append(rv.Cells, c.Value(row.Record))
		}
		if h.screen.EditPath != nil && v.Affordances.Edit {
			rv.EditPath = h.screen.EditPath(row.Record)
		}
		data.Rows = append(data.Rows, rv)
	}

	for _, f := range h.screen.Filters {
		fv := FilterView{FilterField: f}
		switch f.Kind {
		case FilterDateRange:
			fv.From, fv.To = rangeBounds(v.Filter[f.Key])
		default:
			fv.Value = v.ActiveFilters[f.Key]
		}
		data.Filters = append(data.Filters, fv)
	}
	return data
}

func (h *Handler[T]) render(w http.ResponseWriter, r *http.Request, inst *instance[T]) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.deps.CSRF.EnsureToken(r.Context(), sess)
	var notices []shared.FlashMessage
	if sess != nil {
		notices = sess.PopFlashes()
	}
	notices = append(notices, inst.notices.Drain()...)
	principal, _ := rbac.PrincipalFromContext(r.Context())
	data := view.TemplateData{
		Title:       h.screen.Title,
		CSRFToken:   csrfToken,
		Notices:     notices,
		CurrentPath: r.URL.Path,
		AdminName:   principal.Name,
		Data:        h.pageData(inst),
	}
	if err := h.deps.Templates.Render(w, "pages/list.html", data); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

// rangeBounds extracts the date part of a DateRange filter value.
func rangeBounds(value any) (from, to string) {
	bounds, ok := value.(map[string]any)
	if !ok {
		return "", ""
	}
	datePart := func(v any) string {
		s, _ := v.(string)
		if i := strings.IndexByte(s, 'T'); i > 0 {
			return s[:i]
		}
		return s
	}
	return datePart(bounds["$gte"]), datePart(bounds["$lte"])
}
