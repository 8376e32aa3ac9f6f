package listview

import (
	"sync"
	"sync/atomic"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
)

// Notices queues user facing messages until the next page render.
type Notices struct {
	mu    sync.Mutex
	queue []shared.FlashMessage
}

// Success implements liststate.Notifier.
func (n *Notices) Success(msg string) { n.push("success", msg) }

// Warn implements liststate.Notifier.
func (n *Notices) Warn(msg string) { n.push("warning", msg) }

func (n *Notices) push(kind, msg string) {
	if msg == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = append(n.queue, shared.FlashMessage{Kind: kind, Message: msg})
}

// Drain returns and clears the queued messages.
func (n *Notices) Drain() []shared.FlashMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queue
	n.queue = nil
	return out
}

// Navigator records the page the browser should be sent to next.
type Navigator struct {
	mu     sync.Mutex
	target int
}

// Navigate implements liststate.Navigator.
func (n *Navigator) Navigate(page int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = page
}

// Take returns and clears the recorded page.
func (n *Navigator) Take() (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	page := n.target
	n.target = 0
	return page, page > 0
}

// BusyCounter is shown while at least one call is running.
type BusyCounter struct {
	n atomic.Int32
}

// Show implements liststate.Busy.
func (b *BusyCounter) Show() { b.n.Add(1) }

// Hide implements liststate.Busy.
func (b *BusyCounter) Hide() {
	if b.n.Add(-1) < 0 {
		b.n.Store(0)
	}
}

// Active reports whether a call is running.
func (b *BusyCounter) Active() bool { return b.n.Load() > 0 }

var (
	_ liststate.Notifier  = (*Notices)(nil)
	_ liststate.Navigator = (*Navigator)(nil)
	_ liststate.Busy      = (*BusyCounter)(nil)
)
