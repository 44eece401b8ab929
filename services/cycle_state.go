package services

import "sync"

// CycleState tracks how many payouts this identity currently holds within
// the ongoing poll cycle. It starts unknown: the feed pre-pass seeds it by
// counting rows whose claim button is already disabled, then each successful
// claim increments it. The throttle in the claim orchestrator reads it.
type CycleState struct {
	mu    sync.Mutex
	known bool
	count int
}

func NewCycleState() *CycleState {
	return &CycleState{}
}

// Value returns the current count and whether it has been seeded yet.
func (c *CycleState) Value() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, c.known
}

// Set seeds or resets the counter.
func (c *CycleState) Set(n int) {
	c.mu.Lock()
	c.count = n
	c.known = true
	c.mu.Unlock()
}

// Increment bumps the counter by one.
func (c *CycleState) Increment() {
	c.mu.Lock()
	c.count++
	c.known = true
	c.mu.Unlock()
}
