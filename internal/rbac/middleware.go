package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/auth/login"

type principalContextKey struct{}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal placed by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	// OnSignOut runs with the session id when an expired token ends the
	// session, e.g. to drop the session's list screens.
	OnSignOut func(sessionID string)
}

// RequireAuth redirects anonymous requests to the login page and places the
// principal in the request context. An expired backend token ends the
// session.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		p, err := m.Service.Principal(r.Context(), sess)
		switch {
		case errors.Is(err, ErrNotSignedIn):
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		case errors.Is(err, backend.ErrUnauthorized):
			m.Service.SignOut(sess)
			if m.OnSignOut != nil {
				m.OnSignOut(sess.ID)
			}
			sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Your session has expired, please sign in again"})
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		case err != nil:
			// keep the cached permissions when the backend is unreachable
			m.logger().Warn("rbac refresh", slog.Any("error", err))
			if cached, ok := load(sess); ok {
				p = cached
			} else {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAny ensures the current admin has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if hasAnyPermission(p.Granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current admin has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if hasAllPermissions(p.Granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
