// Package timer implements the one-shot turn countdown used by a live draft.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// ExpireFunc is called from the countdown's goroutine when an armed turn
// runs out. gen identifies the arming that fired; pass it back to Expire.
type ExpireFunc func(gen uint64)

// Countdown is a single re-armable turn timer. At most one arming is live at
// a time; arming again replaces the previous one.
type Countdown struct {
	clock Clock

	mu       sync.Mutex
	gen      uint64
	timer    clockwork.Timer
	stop     chan struct{}
	deadline time.Time
	armed    bool
}

// NewCountdown returns a disarmed countdown driven by clock.
func NewCountdown(clock Clock) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{clock: clock}
}

// Arm starts a fresh countdown of d, cancelling any live one, and returns the
// generation of the new arming.
func (c *Countdown) Arm(d time.Duration, onExpire ExpireFunc) uint64 {
	if d < 0 {
		d = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.disarmLocked()

	c.gen++
	gen := c.gen
	t := c.clock.NewTimer(d)
	stop := make(chan struct{})

	c.timer = t
	c.stop = stop
	c.deadline = c.clock.Now().Add(d)
	c.armed = true

	go func() {
		select {
		case <-t.Chan():
			if onExpire != nil {
				onExpire(gen)
			}
		case <-stop:
		}
	}()

	return gen
}

// Cancel disarms the countdown. Any expiry already in flight becomes stale.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
	c.gen++
}

// Expire consumes the arming identified by gen. It returns false when gen is
// stale, i.e. the countdown was re-armed or cancelled after that arming.
func (c *Countdown) Expire(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed || gen != c.gen {
		return false
	}
	c.armed = false
	c.timer = nil
	c.stop = nil
	c.deadline = time.Time{}
	return true
}

// Armed reports whether a countdown is live.
func (c *Countdown) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Deadline returns the instant the live countdown runs out.
func (c *Countdown) Deadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline, c.armed
}

// Remaining returns the time left on the live countdown, clamped at zero.
// A disarmed countdown has zero remaining.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return 0
	}
	left := c.deadline.Sub(c.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

func (c *Countdown) disarmLocked() {
	if !c.armed && c.timer == nil {
		return
	}
	if c.timer != nil {
		stopAndDrainTimer(c.timer)
	}
	if c.stop != nil {
		close(c.stop)
	}
	c.timer = nil
	c.stop = nil
	c.deadline = time.Time{}
	c.armed = false
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
