package breach

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker opens after a run of consecutive failures and lets a single
// trial call through once the cool-down has elapsed.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	coolDown         time.Duration
	nowFn            func() time.Time

	state         breakerState
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// NewCircuitBreaker creates a closed breaker. A threshold below one disables tripping.
func NewCircuitBreaker(failureThreshold int, coolDown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		coolDown:         coolDown,
		nowFn:            time.Now,
		state:            stateClosed,
	}
}

// Allow reports whether a call may proceed.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateOpen:
		if c.nowFn().Sub(c.openedAt) < c.coolDown {
			return false
		}
		c.state = stateHalfOpen
		c.trialInFlight = true
		return true
	case stateHalfOpen:
		if c.trialInFlight {
			return false
		}
		c.trialInFlight = true
		return true
	}
	return true
}

// RecordResult feeds the outcome of an allowed call back into the breaker.
func (c *CircuitBreaker) RecordResult(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if success {
		c.state = stateClosed
		c.failures = 0
		c.trialInFlight = false
		return
	}

	switch c.state {
	case stateHalfOpen:
		c.trip()
	case stateClosed:
		c.failures++
		if c.failureThreshold > 0 && c.failures >= c.failureThreshold {
			c.trip()
		}
	}
}

// State returns the current state name.
func (c *CircuitBreaker) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

func (c *CircuitBreaker) trip() {
	c.state = stateOpen
	c.openedAt = c.nowFn()
	c.trialInFlight = false
}
