package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/storefront-admin/internal/auth"
	"github.com/odyssey-erp/storefront-admin/internal/observability"
	"github.com/odyssey-erp/storefront-admin/internal/platform/httpx"
	"github.com/odyssey-erp/storefront-admin/internal/rbac"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
	"github.com/odyssey-erp/storefront-admin/web"
)

const readinessTimeout = 2 * time.Second

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	AccountHandler *rbac.AccountHandler
	RBACMiddleware rbac.Middleware
	Screens        []ScreenRoute
	Metrics        *observability.Metrics
	// Probes back /readyz.
	Probes []httpx.Probe
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", httpx.Readiness(readinessTimeout, params.Probes...))

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireAuth)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
			principal, _ := rbac.PrincipalFromContext(r.Context())
			data := view.TemplateData{
				Title:       "Dashboard",
				CSRFToken:   csrfToken,
				Notices:     sess.PopFlashes(),
				CurrentPath: r.URL.Path,
				AdminName:   principal.Name,
				Data: map[string]any{
					"Screens": params.Screens,
				},
			}
			if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
				params.Logger.Error("render home", slog.Any("error", err))
			}
		})

		if params.AccountHandler != nil {
			r.Route("/account", params.AccountHandler.MountRoutes)
		}
		for _, s := range params.Screens {
			r.Route(s.Path, s.Mount)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler caches embedded assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
