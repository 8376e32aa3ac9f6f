package liststate

import "sync"

// Bag collects release functions for subscriptions, timers and other
// resources owned by a view. Release runs them once, newest first.
type Bag struct {
	mu       sync.Mutex
	releases []func()
	released bool
}

// Add registers fn. When the bag was already released fn runs immediately.
func (b *Bag) Add(fn func()) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		fn()
		return
	}
	b.releases = append(b.releases, fn)
	b.mu.Unlock()
}

// Release runs every registered function. Subsequent calls do nothing.
func (b *Bag) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	releases := b.releases
	b.releases = nil
	b.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

// Released reports whether Release ran.
func (b *Bag) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}
