package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
)

func serve(h http.Handler, sess *shared.Session) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/zones", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	m := Middleware{Service: NewService(&stubProfiles{}, 0)}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := serve(m.RequireAuth(ok), newSession(t))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestRequireAuthEndsExpiredSession(t *testing.T) {
	svc := NewService(&stubProfiles{err: backend.ErrUnauthorized}, 1)
	m := Middleware{Service: svc}
	sess := newSession(t)
	svc.SignIn(sess, backend.Login{Token: "old", Admin: backend.Admin{ID: "a1"}})
	sess.Set(keyRefreshedAt, "")

	rec := serve(m.RequireAuth(http.NotFoundHandler()), sess)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, Token(sess))
	assert.Equal(t, "warning", sess.PopFlash().Kind)
}

func TestRequireAuthExpiredSessionRunsSignOutHook(t *testing.T) {
	svc := NewService(&stubProfiles{err: backend.ErrUnauthorized}, 1)
	var dropped []string
	m := Middleware{Service: svc, OnSignOut: func(id string) { dropped = append(dropped, id) }}
	sess := newSession(t)
	svc.SignIn(sess, backend.Login{Token: "old", Admin: backend.Admin{ID: "a1"}})
	sess.Set(keyRefreshedAt, "")

	rec := serve(m.RequireAuth(http.NotFoundHandler()), sess)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{sess.ID}, dropped)

	// a live session never triggers the hook
	ok := NewService(&stubProfiles{}, 0)
	live := newSession(t)
	ok.SignIn(live, backend.Login{Token: "jwt", Admin: backend.Admin{ID: "a2"}})
	m.Service = ok
	serve(m.RequireAuth(http.NotFoundHandler()), live)
	assert.Equal(t, []string{sess.ID}, dropped)
}

func TestRequireAuthKeepsCachedPrincipalWhenBackendDown(t *testing.T) {
	svc := NewService(&stubProfiles{err: context.DeadlineExceeded}, 1)
	m := Middleware{Service: svc}
	sess := newSession(t)
	svc.SignIn(sess, backend.Login{Token: "jwt", Admin: backend.Admin{ID: "a1", Permissions: []string{"edit"}}})
	sess.Set(keyRefreshedAt, "")

	var seen Principal
	rec := serve(m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
	})), sess)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", seen.ID)
}

func TestRequireAnyAndAll(t *testing.T) {
	svc := NewService(&stubProfiles{}, 0)
	m := Middleware{Service: svc}
	sess := newSession(t)
	svc.SignIn(sess, backend.Login{Token: "jwt", Admin: backend.Admin{ID: "a1", Permissions: []string{"edit"}}})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(m.RequireAuth(m.RequireAny("delete", "EDIT")(ok)), sess).Code)
	assert.Equal(t, http.StatusForbidden, serve(m.RequireAuth(m.RequireAny("delete")(ok)), sess).Code)
	assert.Equal(t, http.StatusForbidden, serve(m.RequireAuth(m.RequireAll("edit", "delete")(ok)), sess).Code)
	assert.Equal(t, http.StatusNoContent, serve(m.RequireAuth(m.RequireAll()(ok)), sess).Code)
	assert.Equal(t, http.StatusForbidden, serve(m.RequireAny("edit")(ok), sess).Code, "no principal in context")
}
