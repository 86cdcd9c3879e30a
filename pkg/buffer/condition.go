package buffer

import (
	"context"
	"sync"
)

// Condition is an integer guarded by a mutex whose changes are broadcast to waiters.
// A buffer increments its notifier after every push and its consumed count after
// every reading handed out, so observers detect progress without inspecting positions.
type Condition struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value int
}

// NewCondition creates a condition holding initial.
func NewCondition(initial int) *Condition {
	c := &Condition{value: initial}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Value returns the current value.
func (c *Condition) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and wakes every waiter.
func (c *Condition) Set(v int) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	c.cond.Broadcast()
}

// ApplyAndNotify replaces the value with fn(value), wakes every waiter and returns the new value.
func (c *Condition) ApplyAndNotify(fn func(int) int) int {
	c.mu.Lock()
	c.value = fn(c.value)
	v := c.value
	c.mu.Unlock()
	c.cond.Broadcast()
	return v
}

// Wait blocks until pred holds for the value or ctx is done.
func (c *Condition) Wait(ctx context.Context, pred func(int) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	for !pred(c.value) {
		if err := ctx.Err(); err != nil {
			return c.value, err
		}
		c.cond.Wait()
	}
	return c.value, nil
}

func increment(v int) int { return v + 1 }
