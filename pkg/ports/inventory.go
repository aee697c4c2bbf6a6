package ports

import (
	"context"

	"github.com/openbmc/ibm-logging/pkg/domain"
)

// Inventory is the object mapper plus property access for inventory items.
type Inventory interface {
	// Subtree returns the objects under root that implement iface, with the
	// services hosting them. A depth of 0 means unlimited.
	Subtree(ctx context.Context, root string, depth int, iface string) (domain.Subtree, error)

	// AllProperties returns every property of iface on path as hosted by
	// service. An unknown object yields an empty map.
	AllProperties(ctx context.Context, service, path, iface string) (domain.PropertyMap, error)
}
