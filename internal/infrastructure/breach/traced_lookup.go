package breach

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/internal/infrastructure/monitoring"
)

// TracedLookup records every live lookup as a span.
// A clean account (not found) is a successful span, not an error.
type TracedLookup struct {
	next     service.BreachLookup
	tracing  *monitoring.TracingManager
	provider string
}

var _ service.BreachLookup = (*TracedLookup)(nil)

// NewTracedLookup wraps next; provider names the upstream in span attributes.
func NewTracedLookup(next service.BreachLookup, tracing *monitoring.TracingManager, provider string) *TracedLookup {
	return &TracedLookup{next: next, tracing: tracing, provider: provider}
}

// Lookup delegates to the wrapped lookup inside a "BreachLookup.Lookup" span.
func (t *TracedLookup) Lookup(ctx context.Context, account string) ([]service.BreachEntry, error) {
	var (
		entries  []service.BreachEntry
		notFound bool
	)
	err := monitoring.TraceOperation(ctx, t.tracing, "BreachLookup.Lookup", func(ctx context.Context) error {
		var lookupErr error
		entries, lookupErr = t.next.Lookup(ctx, account)
		if errors.Is(lookupErr, service.ErrBreachNotFound) {
			notFound = true
			return nil
		}
		if lookupErr == nil {
			trace.SpanFromContext(ctx).SetAttributes(attribute.Int("breach.entries", len(entries)))
		}
		return lookupErr
	}, map[string]interface{}{"breach.provider": t.provider})

	if notFound {
		return nil, service.ErrBreachNotFound
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}
