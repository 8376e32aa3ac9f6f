package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/storefront-admin/internal/auth"
	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/rbac"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
	_ "github.com/odyssey-erp/storefront-admin/testing"
)

type stubAuthenticator struct {
	login backend.Login
	err   error
	calls int
}

func (s *stubAuthenticator) Login(ctx context.Context, username, password string) (backend.Login, error) {
	s.calls++
	return s.login, s.err
}

type stubScreens struct {
	dropped []string
}

func (s *stubScreens) DropSession(session string) {
	s.dropped = append(s.dropped, session)
}

type authFixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	authn    *stubAuthenticator
	screens  *stubScreens
}

func newAuthFixture(t *testing.T, authn *stubAuthenticator) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	screens := &stubScreens{}
	handler := auth.NewHandler(nil, authn, rbac.NewService(nil, 0), screens, templates, sessionManager, shared.NewCSRFManager("csrfsecret"))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			req = req.WithContext(ctx)
			inner := httptest.NewRecorder()
			next.ServeHTTP(inner, req)
			if err := sessionManager.Commit(ctx, w, req, sess); err != nil {
				t.Fatalf("commit session: %v", err)
			}
			for k, v := range inner.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(inner.Code)
			_, _ = w.Write(inner.Body.Bytes())
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return &authFixture{router: r, sessions: sessionManager, authn: authn, screens: screens}
}

func (f *authFixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("session cookie %q not set", name)
	return nil
}

func TestLoginPage(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{})
	res := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func TestLoginValidation(t *testing.T) {
	authn := &stubAuthenticator{}
	f := newAuthFixture(t, authn)
	res := f.do(postForm("/auth/login", url.Values{"username": {"ayu"}, "password": {"123"}}))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Must be at least 6 characters") {
		t.Fatalf("expected password error in response")
	}
	if authn.calls != 0 {
		t.Fatalf("backend must not be called for an invalid form")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{err: &liststate.RejectedError{Op: "login", Message: "Wrong password"}})
	res := f.do(postForm("/auth/login", url.Values{"username": {"ayu"}, "password": {"wrongpass"}}))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Wrong password") {
		t.Fatalf("expected backend message in response")
	}
	if strings.Contains(res.Body.String(), "wrongpass") {
		t.Fatalf("password must not be echoed")
	}
}

func TestLoginBackendDown(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{err: errors.New("dial tcp: connection refused")})
	res := f.do(postForm("/auth/login", url.Values{"username": {"ayu"}, "password": {"secret123"}}))
	if !strings.Contains(res.Body.String(), "Could not reach the server") {
		t.Fatalf("expected transport error message")
	}
}

func TestLoginSuccessRotatesSession(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{login: backend.Login{
		Token: "tok-1",
		Admin: backend.Admin{ID: "a1", Name: "Ayu", Role: "editor", Permissions: []string{"create", "edit"}},
	}})

	first := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	before := sessionCookie(t, first, f.sessions.CookieName())

	res := f.do(postForm("/auth/login", url.Values{"username": {"ayu"}, "password": {"secret123"}}), before)
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	after := sessionCookie(t, res, f.sessions.CookieName())
	if after.Value == before.Value {
		t.Fatalf("session id must change at sign in")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(after)
	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if rbac.Token(sess) != "tok-1" {
		t.Fatalf("expected token stored in session, got %q", rbac.Token(sess))
	}

	res = f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil), after)
	if res.Code != http.StatusSeeOther {
		t.Fatalf("signed in admin should be redirected away from login, got %d", res.Code)
	}
}

func TestLogoutDropsScreens(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{login: backend.Login{Token: "tok-1", Admin: backend.Admin{ID: "a1"}}})
	res := f.do(postForm("/auth/login", url.Values{"username": {"ayu"}, "password": {"secret123"}}))
	cookie := sessionCookie(t, res, f.sessions.CookieName())

	res = f.do(postForm("/auth/logout", url.Values{}), cookie)
	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != rbac.LoginPath {
		t.Fatalf("expected redirect to login, got %d %q", res.Code, res.Header().Get("Location"))
	}
	if len(f.screens.dropped) != 1 || f.screens.dropped[0] != cookie.Value {
		t.Fatalf("expected screens of %s dropped, got %v", cookie.Value, f.screens.dropped)
	}
}
