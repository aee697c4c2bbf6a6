package ports

import (
	"context"

	"github.com/openbmc/ibm-logging/pkg/domain"
)

// Bus is the read side of the primary log store.
type Bus interface {
	// ManagedObjects returns every object the log store currently exposes,
	// keyed by object path.
	ManagedObjects(ctx context.Context) (domain.ObjectTree, error)

	// Subscribe starts delivering lifecycle signals in publication order.
	// The subscription is active when Subscribe returns. The channel is
	// closed when ctx is canceled or the transport fails.
	Subscribe(ctx context.Context) (<-chan domain.Signal, error)
}
