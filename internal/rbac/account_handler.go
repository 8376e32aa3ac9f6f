package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
)

// AccountHandler shows the signed-in admin and the permissions granted.
type AccountHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewAccountHandler builds AccountHandler instance.
func NewAccountHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers account routes. The router must already apply
// RequireAuth.
func (h *AccountHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/refresh", h.refresh)
}

func (h *AccountHandler) show(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	h.render(w, r, p, http.StatusOK)
}

func (h *AccountHandler) refresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Refresh(r.Context(), sess); err != nil {
		h.logger.Warn("refresh permissions", slog.Any("error", err))
		sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Could not refresh permissions"})
	} else {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Permissions refreshed"})
	}
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

func (h *AccountHandler) render(w http.ResponseWriter, r *http.Request, p Principal, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Account",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		AdminName:   p.Name,
		Data:        map[string]any{"Principal": p},
	}
	if err := h.templates.RenderStatus(w, status, "pages/account.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
