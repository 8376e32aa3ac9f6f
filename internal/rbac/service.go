package rbac

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
)

// Session keys holding the principal between requests.
const (
	keyToken       = "admin_token"
	keyName        = "admin_name"
	keyRole        = "admin_role"
	keyPermissions = "admin_permissions"
	keyRefreshedAt = "admin_refreshed_at"
)

// ErrNotSignedIn is returned when the session carries no admin.
var ErrNotSignedIn = errors.New("rbac: not signed in")

// ProfileSource reloads an admin from the backend.
type ProfileSource interface {
	Profile(ctx context.Context, token string) (backend.Admin, error)
}

// Service keeps the session principal in step with the backend.
type Service struct {
	profiles ProfileSource
	maxAge   time.Duration
	now      func() time.Time
	group    singleflight.Group
}

// NewService builds a Service. Permissions older than maxAge are refreshed
// on the next request; zero disables refreshing.
func NewService(profiles ProfileSource, maxAge time.Duration) *Service {
	return &Service{profiles: profiles, maxAge: maxAge, now: time.Now}
}

// SignIn stores a successful login in the session.
func (s *Service) SignIn(sess *shared.Session, login backend.Login) Principal {
	p := FromAdmin(login.Admin)
	sess.SetUser(p.ID)
	sess.Set(keyToken, login.Token)
	s.store(sess, p)
	return p
}

// SignOut forgets the principal.
func (s *Service) SignOut(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.SetUser("")
	for _, k := range []string{keyToken, keyName, keyRole, keyPermissions, keyRefreshedAt} {
		sess.Delete(k)
	}
}

// Token returns the backend token of the session.
func Token(sess *shared.Session) string {
	if sess == nil {
		return ""
	}
	return sess.Get(keyToken)
}

// Principal returns the session principal, refreshing it from the backend
// when stale. Concurrent refreshes of one token share a single call.
func (s *Service) Principal(ctx context.Context, sess *shared.Session) (Principal, error) {
	p, ok := load(sess)
	if !ok {
		return Principal{}, ErrNotSignedIn
	}
	if s.maxAge <= 0 || s.profiles == nil || !s.stale(sess) {
		return p, nil
	}
	return s.Refresh(ctx, sess)
}

// Refresh reloads the principal unconditionally.
func (s *Service) Refresh(ctx context.Context, sess *shared.Session) (Principal, error) {
	token := Token(sess)
	if token == "" {
		return Principal{}, ErrNotSignedIn
	}
	ch := s.group.DoChan(token, func() (interface{}, error) {
		return s.profiles.Profile(context.WithoutCancel(ctx), token)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Principal{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return Principal{}, res.Err
	}
	p := FromAdmin(res.Val.(backend.Admin))
	if p.ID == "" {
		p.ID = sess.User()
	}
	s.store(sess, p)
	return p, nil
}

func (s *Service) stale(sess *shared.Session) bool {
	at, err := time.Parse(time.RFC3339, sess.Get(keyRefreshedAt))
	if err != nil {
		return true
	}
	return s.now().Sub(at) > s.maxAge
}

func (s *Service) store(sess *shared.Session, p Principal) {
	sess.Set(keyName, p.Name)
	sess.Set(keyRole, p.RoleName)
	sess.Set(keyPermissions, strings.Join(p.Granted, ","))
	sess.Set(keyRefreshedAt, s.now().UTC().Format(time.RFC3339))
}

func load(sess *shared.Session) (Principal, bool) {
	if sess == nil || sess.User() == "" || sess.Get(keyToken) == "" {
		return Principal{}, false
	}
	var granted []string
	if raw := sess.Get(keyPermissions); raw != "" {
		granted = strings.Split(raw, ",")
	}
	return Principal{
		ID:       sess.User(),
		Name:     sess.Get(keyName),
		RoleName: sess.Get(keyRole),
		Granted:  granted,
	}, true
}
