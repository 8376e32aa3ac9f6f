package auth

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
	"github.com/odyssey-erp/storefront-admin/internal/rbac"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
)

// Authenticator verifies admin credentials against the backend.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (backend.Login, error)
}

// SessionScreens releases the list screens held for a session.
type SessionScreens interface {
	DropSession(session string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	authenticator  Authenticator
	principals     *rbac.Service
	screens        SessionScreens
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. screens may be nil.
func NewHandler(logger *slog.Logger, authenticator Authenticator, principals *rbac.Service, screens SessionScreens, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		authenticator:  authenticator,
		principals:     principals,
		screens:        screens,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,min=6"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if rbac.Token(sess) != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		}
	}

	if len(errs) == 0 {
		login, err := h.authenticator.Login(r.Context(), form.Username, form.Password)
		var rejected *liststate.RejectedError
		switch {
		case err == nil:
			h.sessionManager.Rotate(sess)
			p := h.principals.SignIn(sess, login)
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + p.Name})
			h.logger.Info("admin signed in", slog.String("admin", p.ID), slog.String("role", p.RoleName))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		case errors.As(err, &rejected), errors.Is(err, backend.ErrUnauthorized):
			errs["general"] = "Invalid username or password"
			if rejected != nil && rejected.Message != "" {
				errs["general"] = rejected.Message
			}
		default:
			h.logger.Error("login", slog.Any("error", err))
			errs["general"] = "Could not reach the server, please try again"
		}
	}

	form.Password = ""
	h.render(w, r, http.StatusBadRequest, loginPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if h.screens != nil {
			h.screens.DropSession(sess.ID)
		}
		h.principals.SignOut(sess)
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var notices []shared.FlashMessage
	if sess != nil {
		notices = sess.PopFlashes()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Notices:     notices,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	}
	return fe.Error()
}
