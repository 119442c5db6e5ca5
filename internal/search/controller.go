// Package search buffers free-text search input and commits it as the
// active search term only after a quiet period.
package search

import (
	"strings"
	"sync"
	"time"

	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// Controller separates the raw input, which is visible immediately, from
// the committed term, which is what the store is queried with.
type Controller struct {
	clk      clock.Clock
	delay    time.Duration
	onCommit func(term string)

	mu        sync.Mutex
	raw       string
	committed string
	timer     clock.Timer
	// gen invalidates timers that fire after a newer Input re-armed.
	gen     uint64
	stopped bool
}

// New returns a Controller. onCommit is called, outside the controller's
// lock, each time the committed term changes; it may be nil.
func New(clk clock.Clock, delay time.Duration, onCommit func(term string)) *Controller {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Controller{clk: clk, delay: delay, onCommit: onCommit}
}

// Input records raw input and restarts the quiet period.
func (c *Controller) Input(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	c.raw = raw
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.clk.AfterFunc(c.delay, func() { c.fire(gen) })
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	term, changed := c.commitLocked()
	c.mu.Unlock()

	if changed && c.onCommit != nil {
		c.onCommit(term)
	}
}

// commitLocked promotes the raw value. The caller holds c.mu.
func (c *Controller) commitLocked() (string, bool) {
	c.timer = nil
	c.gen++
	if c.raw == c.committed {
		return c.committed, false
	}
	c.committed = c.raw
	return c.committed, true
}

// Flush commits the raw value now, cancelling any pending timer.
// It reports whether the committed term changed.
func (c *Controller) Flush() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	term, changed := c.commitLocked()
	c.mu.Unlock()

	if changed && c.onCommit != nil {
		c.onCommit(term)
	}
	return changed
}

// Raw returns the last input, committed or not.
func (c *Controller) Raw() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw
}

// Committed returns the active search term.
func (c *Controller) Committed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Pending reports whether input is waiting for the quiet period to end.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Stop cancels any pending commit. Later input is ignored.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.stopped = true
}

// Prefix normalizes a committed term into a store prefix. Only an
// all-whitespace term is treated as empty; anything else is matched as typed,
// case included.
func Prefix(term string) string {
	if strings.TrimSpace(term) == "" {
		return ""
	}
	return term
}
