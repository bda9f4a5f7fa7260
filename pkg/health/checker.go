package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds a single dependency probe.
const DefaultTimeout = 2 * time.Second

// Checker reports the health of one dependency. A nil error means healthy.
type Checker func() error

// Pinger is anything that can be pinged with a context: *pgxpool.Pool, graph.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker is a dependency that reports connection state without I/O.
type ConnChecker interface {
	IsConnected() bool
}

// PingFunc adapts a bare ping function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// DatabaseChecker pings the PostgreSQL pool.
func DatabaseChecker(db Pinger) Checker {
	return PingChecker("database", db, DefaultTimeout)
}

// GraphChecker pings the graph store.
func GraphChecker(store Pinger) Checker {
	return PingChecker("graph store", store, DefaultTimeout)
}

// RedisChecker pings Redis through ping.
func RedisChecker(ping func(ctx context.Context) error) Checker {
	if ping == nil {
		return PingChecker("redis", nil, DefaultTimeout)
	}
	return PingChecker("redis", PingFunc(ping), DefaultTimeout)
}

// PingChecker pings p, giving up after timeout when it is positive.
func PingChecker(name string, p Pinger, timeout time.Duration) Checker {
	return func() error {
		if p == nil {
			return fmt.Errorf("%s connection is nil", name)
		}
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return p.Ping(ctx)
	}
}

// EventBusChecker reports unhealthy when the bus connection is down.
func EventBusChecker(bus ConnChecker) Checker {
	return func() error {
		switch {
		case bus == nil:
			return errors.New("event bus is nil")
		case !bus.IsConnected():
			return errors.New("event bus not connected")
		}
		return nil
	}
}

// AsyncChecker returns a timeout error if checker has not answered within
// timeout. The checker keeps running in the background.
func AsyncChecker(checker Checker, timeout time.Duration) Checker {
	return func() error {
		done := make(chan error, 1)
		go func() { done <- checker() }()

		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case err := <-done:
			return err
		case <-timer.C:
			return fmt.Errorf("health check timeout after %v", timeout)
		}
	}
}

// CachedChecker memoizes a checker result for ttl so probes under load do
// not hammer the dependency.
type CachedChecker struct {
	checker Checker
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	checked time.Time
	last    error
}

// NewCachedChecker wraps checker with a result cache.
func NewCachedChecker(checker Checker, ttl time.Duration) *CachedChecker {
	return &CachedChecker{checker: checker, ttl: ttl, now: time.Now}
}

// Check returns the cached result, re-running the checker once it expires.
func (c *CachedChecker) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now := c.now(); c.checked.IsZero() || now.Sub(c.checked) >= c.ttl {
		c.last = c.checker()
		c.checked = now
	}
	return c.last
}
