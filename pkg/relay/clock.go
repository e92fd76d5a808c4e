package relay

import "sync"

// Clock tracks the latest inbound media timestamp for one call, in
// milliseconds relative to stream start. Updates are monotonic: a timestamp
// smaller than the last observed value is clamped (never applied). The only
// permitted rollback is an explicit Reset, signaled by a stream start.
type Clock struct {
	mu     sync.Mutex
	latest int64
	set    bool
}

// Observe applies a new timestamp if it does not regress the clock.
func (c *Clock) Observe(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set && ms < c.latest {
		return
	}
	c.latest = ms
	c.set = true
}

// Now returns the last observed value, or false when nothing has been
// observed since creation or the last Reset left it at zero.
func (c *Clock) Now() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.set
}

// Reset rewinds the clock to zero for a re-established stream. The zero is
// considered observed: a fresh stream starts its timeline at 0ms.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = 0
	c.set = true
}
