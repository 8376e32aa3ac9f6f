package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
)

type stubProfiles struct {
	calls atomic.Int32
	admin backend.Admin
	err   error
	gate  chan struct{}
}

func (s *stubProfiles) Profile(ctx context.Context, token string) (backend.Admin, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.admin, s.err
}

func newSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "s", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func TestPrincipalPermissions(t *testing.T) {
	p := FromAdmin(backend.Admin{ID: "a1", Username: "root", Role: "editor", Permissions: []string{" Edit", "create", "edit"}})
	assert.Equal(t, "root", p.Name)
	assert.Equal(t, []string{"edit", "create"}, p.Granted)
	assert.True(t, p.Has(liststate.PermEdit))
	assert.False(t, p.Has(liststate.PermDelete))
	assert.Equal(t, "a1", p.AdminID())
	assert.Equal(t, "editor", p.Role())
}

func TestSignInStoresPrincipal(t *testing.T) {
	sess := newSession(t)
	svc := NewService(&stubProfiles{}, 0)

	_, err := svc.Principal(context.Background(), sess)
	require.ErrorIs(t, err, ErrNotSignedIn)

	svc.SignIn(sess, backend.Login{Token: "jwt", Admin: backend.Admin{ID: "a1", Role: "admin", Permissions: []string{"delete"}}})
	p, err := svc.Principal(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "a1", p.ID)
	assert.True(t, p.Has(liststate.PermDelete))
	assert.Equal(t, "jwt", Token(sess))

	svc.SignOut(sess)
	_, err = svc.Principal(context.Background(), sess)
	require.ErrorIs(t, err, ErrNotSignedIn)
	assert.Empty(t, Token(sess))
}

func TestStalePrincipalIsRefreshedOnce(t *testing.T) {
	profiles := &stubProfiles{
		admin: backend.Admin{ID: "a1", Role: "admin", Permissions: []string{"edit", "delete"}},
		gate:  make(chan struct{}),
	}
	svc := NewService(profiles, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	sess := newSession(t)
	svc.SignIn(sess, backend.Login{Token: "jwt", Admin: backend.Admin{ID: "a1", Permissions: []string{"edit"}}})

	p, err := svc.Principal(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, p.Has(liststate.PermDelete))
	assert.Zero(t, profiles.calls.Load())

	sessions := make([]*shared.Session, 3)
	for i := range sessions {
		// separate sessions of the same admin share the refresh
		sessions[i] = newSession(t)
		svc.SignIn(sessions[i], backend.Login{Token: "jwt", Admin: backend.Admin{ID: "a1"}})
	}
	now = now.Add(2 * time.Minute)
	var wg sync.WaitGroup
	results := make([]Principal, len(sessions))
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Principal(context.Background(), sessions[i])
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(profiles.gate)
	wg.Wait()

	assert.Equal(t, int32(1), profiles.calls.Load())
	for _, r := range results {
		assert.True(t, r.Has(liststate.PermDelete))
	}

	// freshly refreshed sessions are served from the session
	_, err = svc.Principal(context.Background(), sessions[0])
	require.NoError(t, err)
	assert.Equal(t, int32(1), profiles.calls.Load())
}
