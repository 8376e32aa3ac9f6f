package listview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const minSweep = time.Second

// Entry is a session scoped screen state held by the registry.
type Entry interface {
	Dispose()
}

// Gauge follows the number of live entries per screen.
type Gauge interface {
	ControllerOpened(screen string)
	ControllerClosed(screen string)
}

type registryKey struct {
	session string
	screen  string
}

type slot struct {
	entry    Entry
	lastUsed time.Time
}

// Registry keeps one entry per session and screen, disposing entries left
// idle longer than the TTL.
type Registry struct {
	ttl    time.Duration
	gauge  Gauge
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[registryKey]*slot
}

// NewRegistry builds a registry. gauge may be nil.
func NewRegistry(ttl time.Duration, gauge Gauge, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ttl:     ttl,
		gauge:   gauge,
		logger:  logger,
		now:     time.Now,
		entries: make(map[registryKey]*slot),
	}
}

// Lookup returns the entry of session for screen, creating it on first use.
func Lookup[E Entry](r *Registry, session, screen string, create func() (E, error)) (E, error) {
	key := registryKey{session: session, screen: screen}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.entries[key]; ok {
		s.lastUsed = r.now()
		e, ok := s.entry.(E)
		if !ok {
			var zero E
			return zero, fmt.Errorf("listview: entry %s has type %T", screen, s.entry)
		}
		return e, nil
	}
	e, err := create()
	if err != nil {
		var zero E
		return zero, err
	}
	r.entries[key] = &slot{entry: e, lastUsed: r.now()}
	if r.gauge != nil {
		r.gauge.ControllerOpened(screen)
	}
	return e, nil
}

// DropSession disposes every entry of session, e.g. on sign out.
func (r *Registry) DropSession(session string) {
	r.mu.Lock()
	var dropped []registryKey
	var entries []Entry
	for k, s := range r.entries {
		if k.session == session {
			dropped = append(dropped, k)
			entries = append(entries, s.entry)
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()
	r.dispose(dropped, entries)
}

// Evict disposes entries idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Evict() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	var dropped []registryKey
	var entries []Entry
	for k, s := range r.entries {
		if s.lastUsed.Before(cutoff) {
			dropped = append(dropped, k)
			entries = append(entries, s.entry)
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()
	r.dispose(dropped, entries)
	return len(dropped)
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run evicts idle entries until ctx is done, then disposes everything.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval(r.ttl))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.logger.Debug("evicted idle list screens", slog.Int("count", n))
			}
		}
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if half := ttl / 2; half >= minSweep {
		return half
	}
	return minSweep
}

// Close disposes every entry.
func (r *Registry) Close() {
	r.mu.Lock()
	var dropped []registryKey
	var entries []Entry
	for k, s := range r.entries {
		dropped = append(dropped, k)
		entries = append(entries, s.entry)
	}
	r.entries = make(map[registryKey]*slot)
	r.mu.Unlock()
	r.dispose(dropped, entries)
}

func (r *Registry) dispose(keys []registryKey, entries []Entry) {
	for i, e := range entries {
		e.Dispose()
		if r.gauge != nil {
			r.gauge.ControllerClosed(keys[i].screen)
		}
	}
}
