package banners

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/listview"
	"github.com/odyssey-erp/storefront-admin/internal/rbac"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
)

// Store loads and saves banners for one admin.
type Store interface {
	Get(ctx context.Context, id string) (Banner, error)
	Add(ctx context.Context, payload any) (liststate.Result, error)
	Update(ctx context.Context, id string, payload any) (liststate.Result, error)
}

// StoreFactory binds a Store to a backend token.
type StoreFactory func(token string) Store

// BackendStore returns a factory over the banner REST collection.
func BackendStore(client *backend.Client) StoreFactory {
	return func(token string) Store {
		return backend.NewResource[Banner](client, Resource, token)
	}
}

type bannerForm struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Image       string `json:"image" validate:"required,url"`
	MobileImage string `json:"mobileImage,omitempty" validate:"omitempty,url"`
	BannerType  string `json:"bannerType" validate:"required,oneof=home allTickets login"`
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
}

type formPageData struct {
	ID     string
	Action string
	Form   bannerForm
	Errors map[string]string
	Types  []listview.Option
}

// FormHandler adds and edits banners.
type FormHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	stores    StoreFactory
	publisher liststate.ReloadPublisher
	guard     rbac.Middleware
	validator *validator.Validate
}

// NewFormHandler builds a FormHandler. A saved banner publishes a reload on
// the banner list topic when publisher is set.
func NewFormHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, stores StoreFactory, publisher liststate.ReloadPublisher) *FormHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormHandler{
		logger:    logger,
		templates: templates,
		csrf:      csrf,
		stores:    stores,
		publisher: publisher,
		guard:     rbac.Middleware{Logger: logger},
		validator: validator.New(),
	}
}

// MountRoutes registers the form routes next to the banner list.
func (h *FormHandler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireAny(string(liststate.PermCreate))).Get("/new", h.showNew)
	r.With(h.guard.RequireAny(string(liststate.PermCreate))).Post("/new", h.create)
	r.With(h.guard.RequireAny(string(liststate.PermEdit))).Get("/edit/{id}", h.showEdit)
	r.With(h.guard.RequireAny(string(liststate.PermEdit))).Post("/edit/{id}", h.update)
}

func (h *FormHandler) showNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, formPageData{Action: "/banners/new", Form: bannerForm{BannerType: "home"}}, nil)
}

func (h *FormHandler) showEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := shared.SessionFromContext(r.Context())
	b, err := h.stores(rbac.Token(sess)).Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Banner not found")
		return
	}
	form := bannerForm{
		Name:        b.Name,
		Description: b.Description,
		Image:       b.Image,
		MobileImage: b.MobileImage,
		BannerType:  b.BannerType,
		URL:         b.URL,
	}
	h.render(w, r, http.StatusOK, formPageData{ID: id, Action: "/banners/edit/" + id, Form: form}, nil)
}

func (h *FormHandler) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *FormHandler) update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *FormHandler) save(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := bannerForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Image:       strings.TrimSpace(r.PostFormValue("image")),
		MobileImage: strings.TrimSpace(r.PostFormValue("mobileImage")),
		BannerType:  r.PostFormValue("bannerType"),
		URL:         strings.TrimSpace(r.PostFormValue("url")),
	}
	data := formPageData{ID: id, Action: "/banners/new", Form: form}
	if id != "" {
		data.Action = "/banners/edit/" + id
	}
	if errs := h.validate(form); len(errs) > 0 {
		data.Errors = errs
		h.render(w, r, http.StatusUnprocessableEntity, data, nil)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	store := h.stores(rbac.Token(sess))
	var (
		res liststate.Result
		err error
	)
	if id == "" {
		res, err = store.Add(r.Context(), form)
	} else {
		res, err = store.Update(r.Context(), id, form)
	}
	if err != nil {
		h.fail(w, r, err, "Something went wrong, please try again")
		return
	}
	if !res.Success {
		h.render(w, r, http.StatusUnprocessableEntity, data, []shared.FlashMessage{{Kind: "warning", Message: res.Message}})
		return
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), Screen().Name); err != nil {
			h.logger.Warn("publish banner reload", slog.Any("error", err))
		}
	}
	if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: res.Message})
	}
	http.Redirect(w, r, "/banners", http.StatusSeeOther)
}

func (h *FormHandler) validate(form bannerForm) map[string]string {
	err := h.validator.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"Name": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "This field is required"
		case "url":
			out[fe.Field()] = "Enter a valid URL"
		case "oneof":
			out[fe.Field()] = "Choose one of the listed placements"
		case "max":
			out[fe.Field()] = "Must be at most " + fe.Param() + " characters"
		default:
			out[fe.Field()] = fe.Error()
		}
	}
	return out
}

func (h *FormHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	sess := shared.SessionFromContext(r.Context())
	var rejected *liststate.RejectedError
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Your session has expired, please sign in again"})
		}
		http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
		return
	case errors.As(err, &rejected):
		if rejected.Message != "" {
			msg = rejected.Message
		}
	default:
		h.logger.Error("banner form", slog.Any("error", err))
	}
	if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: msg})
	}
	http.Redirect(w, r, "/banners", http.StatusSeeOther)
}

func (h *FormHandler) render(w http.ResponseWriter, r *http.Request, status int, data formPageData, notices []shared.FlashMessage) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	if sess != nil {
		notices = append(sess.PopFlashes(), notices...)
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	data.Types = Types
	title := "New banner"
	if data.ID != "" {
		title = "Edit banner"
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Notices:     notices,
		CurrentPath: r.URL.Path,
		AdminName:   principal.Name,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/banner_form.html", viewData); err != nil {
		h.logger.Error("render banner form", slog.Any("error", err))
	}
}
