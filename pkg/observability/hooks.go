package observability

import (
	"context"
	"log/slog"

	"github.com/openbmc/ibm-logging/pkg/domain"
)

// DebugHooks logs every lifecycle event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSignal: func(ctx context.Context, e *domain.SignalEvent) {
			logger.Debug("Signal", "kind", e.Kind, "path", e.Path, "handled", e.Handled)
		},
		OnPolicyResolved: func(ctx context.Context, e *domain.PolicyEvent) {
			logger.Debug("Policy", "entry", e.EntryID, "eid", e.EventID, "outcome", e.Outcome)
		},
		OnCallout: func(ctx context.Context, e *domain.CalloutEvent) {
			logger.Debug("Callout", "entry", e.EntryID, "index", e.Index, "op", e.Op, "inventory", e.InventoryPath)
		},
		OnEntryAdded: func(ctx context.Context, e *domain.EntryEvent) {
			logger.Debug("Entry Added", "entry", e.EntryID, "callouts", e.Callouts, "tracked", e.Tracked)
		},
		OnEntryRemoved: func(ctx context.Context, e *domain.EntryEvent) {
			logger.Debug("Entry Removed", "entry", e.EntryID, "tracked", e.Tracked)
		},
	}
}

// Chain combines hooks so that each callback runs every non-nil callback
// of the given hooks in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnSignal = chain(out.OnSignal, h.OnSignal)
		out.OnPolicyResolved = chain(out.OnPolicyResolved, h.OnPolicyResolved)
		out.OnCallout = chain(out.OnCallout, h.OnCallout)
		out.OnEntryAdded = chain(out.OnEntryAdded, h.OnEntryAdded)
		out.OnEntryRemoved = chain(out.OnEntryRemoved, h.OnEntryRemoved)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
