package liststate

import (
	"log/slog"
	"strings"
	"time"
)

// Search feeds raw input into the debounced search stream. Only the last term
// typed within the debounce window is emitted, repeated terms are dropped and
// an in-flight search is superseded by a newer one.
func (c *Controller[T]) Search(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.pendingTerm = term
	c.debounceSeq++
	seq := c.debounceSeq
	if c.debouncing {
		c.debounceStop()
	} else {
		c.debouncing = true
		c.beginLocked()
	}
	timer := time.AfterFunc(c.cfg.SearchDebounce, func() { c.fireSearch(seq) })
	c.debounceStop = timer.Stop
}

// SearchTerm returns the active search term, empty when not searching.
func (c *Controller[T]) SearchTerm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchTerm
}

func (c *Controller[T]) fireSearch(seq uint64) {
	c.mu.Lock()
	if c.disposed || seq != c.debounceSeq || !c.debouncing {
		c.mu.Unlock()
		return
	}
	c.debouncing = false
	term := strings.TrimSpace(c.pendingTerm)
	if c.termEmitted && term == c.lastTerm {
		c.endLocked()
		c.mu.Unlock()
		return
	}
	c.termEmitted = true
	c.lastTerm = term

	// Any producer still in flight is now stale.
	c.token++
	token := c.token

	if term == "" {
		c.searchTerm = ""
		c.searchResults = nil
		c.setRowsLocked(c.held, c.heldCount)
		back := c.heldPage > 0 && c.heldPage != c.page
		if back {
			c.page = c.heldPage
			c.routed = true
			c.routePage = c.heldPage
		}
		page := c.page
		c.endLocked()
		c.mu.Unlock()
		if back {
			c.nav.Navigate(page)
		}
		return
	}

	prevTerm := c.searchTerm
	c.searchTerm = term
	q := c.queryLocked(1)
	c.mu.Unlock()
	// the activity taken for the debounce is handed over to the fetch
	defer c.end()

	start := time.Now()
	res, err := c.svc.FetchList(c.ctx, q, term)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	if token != c.token {
		c.mu.Unlock()
		c.observer.StaleDiscarded(c.cfg.Name)
		return
	}
	if err != nil || !res.Success {
		// the rows on screen still belong to the previous term
		c.searchTerm = prevTerm
		c.lastTerm = prevTerm
	}
	if err != nil {
		c.mu.Unlock()
		c.observer.FetchCompleted(c.cfg.Name, "failed", time.Since(start))
		c.logger.Error("search", slog.String("term", term), slog.Any("error", err))
		return
	}
	if !res.Success {
		c.mu.Unlock()
		c.observer.FetchCompleted(c.cfg.Name, "rejected", time.Since(start))
		c.notify.Warn(res.Message)
		return
	}
	c.searchResults = res.Data
	c.setRowsLocked(res.Data, res.Count)
	c.page = 1
	// page 1 is already on screen; its parameter echo must not fetch again
	c.routed = true
	c.routePage = 1
	c.loaded = true
	c.mu.Unlock()

	c.observer.FetchCompleted(c.cfg.Name, "ok", time.Since(start))
	c.nav.Navigate(1)
}
