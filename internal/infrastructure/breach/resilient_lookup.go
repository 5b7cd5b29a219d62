package breach

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/service"
	apperrors "github.com/turtacn/pdmews/pkg/errors"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = apperrors.ErrTransient("breach lookup circuit is open")

type lookupResult struct {
	entries []service.BreachEntry
	err     error
}

// ResilientLookup wraps a BreachLookup with a per-call timeout, a circuit
// breaker, a result cache and request collapsing.
// Only definitive answers (found / not found) are cached.
type ResilientLookup struct {
	next    service.BreachLookup
	timeout time.Duration
	breaker *CircuitBreaker
	cache   *cache.Cache
	group   singleflight.Group
	metrics service.Metrics
}

var _ service.BreachLookup = (*ResilientLookup)(nil)

// NewResilientLookup wraps next.
func NewResilientLookup(next service.BreachLookup, timeout, cacheTTL time.Duration, breaker *CircuitBreaker, metrics service.Metrics) *ResilientLookup {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &ResilientLookup{
		next:    next,
		timeout: timeout,
		breaker: breaker,
		cache:   cache.New(cacheTTL, 2*cacheTTL),
		metrics: metrics,
	}
}

// Lookup returns the cached answer for account or performs a guarded live lookup.
func (r *ResilientLookup) Lookup(ctx context.Context, account string) ([]service.BreachEntry, error) {
	// never keep raw identifiers as cache keys
	key := models.HashIdentifier(account)
	if cached, ok := r.cache.Get(key); ok {
		r.metrics.RecordCacheAccess("breach", true)
		res := cached.(lookupResult)
		return res.entries, res.err
	}
	r.metrics.RecordCacheAccess("breach", false)

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if !r.breaker.Allow() {
			return nil, ErrCircuitOpen
		}
		// shared by every joined caller, so one caller's cancellation must not end it
		entries, err := r.callWithTimeout(context.WithoutCancel(ctx), account)
		switch {
		case err == nil:
			r.breaker.RecordResult(true)
			r.cache.SetDefault(key, lookupResult{entries: entries})
		case errors.Is(err, service.ErrBreachNotFound):
			r.breaker.RecordResult(true)
			r.cache.SetDefault(key, lookupResult{err: err})
		case errors.Is(err, service.ErrBreachUnauthorized):
			// the service answered; the key is wrong
			r.breaker.RecordResult(true)
		default:
			r.breaker.RecordResult(false)
		}
		return entries, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]service.BreachEntry), nil
}

// callWithTimeout runs the lookup in its own goroutine so a hung call cannot outlive the deadline.
func (r *ResilientLookup) callWithTimeout(ctx context.Context, account string) ([]service.BreachEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan lookupResult, 1)
	go func() {
		entries, err := r.next.Lookup(ctx, account)
		done <- lookupResult{entries: entries, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			return nil, apperrors.ErrTransient("breach lookup timed out").WithCause(res.err)
		}
		return res.entries, res.err
	case <-ctx.Done():
		return nil, apperrors.ErrTransient("breach lookup timed out").WithCause(ctx.Err())
	}
}
