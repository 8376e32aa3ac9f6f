package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	prefix     string
}

// Session holds per-request session data.
type Session struct {
	ID        string
	previous  string
	values    map[string]string
	userID    string
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values  map[string]string `json:"values"`
	UserID  string            `json:"user_id"`
	Flashes []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager. The secret namespaces the
// Redis keys so that consoles sharing a Redis do not read each other's
// sessions.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	prefix := "session:"
	if secret != "" {
		prefix = "session:" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(secret)).String()[:8] + ":"
	}
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		prefix:     prefix,
	}
}

// Load loads the request session or starts a new one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return sm.newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	return &Session{
		ID:      cookie.Value,
		values:  stored.Values,
		userID:  stored.UserID,
		flashes: stored.Flashes,
	}, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	if sess.previous != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.previous)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.previous = ""
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// Rotate gives the session a fresh id and drops the old one on commit.
// Call it when the privilege level changes, e.g. at sign in.
func (sm *SessionManager) Rotate(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.isNew {
		sess.previous = sess.ID
	}
	sess.ID = uuid.NewString()
	sess.dirty = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if cur, ok := s.values[key]; ok && cur == value {
		return
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with an admin id.
func (s *Session) SetUser(id string) {
	if s.userID == id {
		return
	}
	s.userID = id
	s.dirty = true
}

// User returns the current admin id.
func (s *Session) User() string {
	return s.userID
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

// PopFlashes retrieves and clears every queued flash message.
func (s *Session) PopFlashes() []FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	s.dirty = true
	return out
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return sm.prefix + id
}
