package duihost

import "sync"

// DefaultCountdown is the number of ticks before the splash reveals the
// routed view.
const DefaultCountdown = 3

// Countdown is the splash display state: a tick counter and a reveal flag.
// It has no bearing on runtime correctness; the routed view additionally
// requires the Ready state.
type Countdown struct {
	mu        sync.Mutex
	start     int
	remaining int
	revealed  bool
}

// NewCountdown creates a countdown of n ticks. n below one reveals on the
// first tick.
func NewCountdown(n int) *Countdown {
	if n < 0 {
		n = 0
	}
	return &Countdown{start: n, remaining: n}
}

// Tick advances the countdown by one and reports whether it is revealed.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revealed {
		return true
	}
	if c.remaining <= 1 {
		c.remaining = 0
		c.revealed = true
		return true
	}
	c.remaining--
	return false
}

// Remaining returns the ticks left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Revealed reports whether the countdown has finished.
func (c *Countdown) Revealed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revealed
}

// Reset restores the initial tick count and hides the routed view.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = c.start
	c.revealed = false
}
