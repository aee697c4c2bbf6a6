package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openbmc/ibm-logging/pkg/domain"
)

// Inventory implements ports.Inventory in memory.
// Safe for concurrent use.
type Inventory struct {
	mu sync.RWMutex
	// path -> service -> interface -> properties
	objects map[string]map[string]domain.InterfaceMap
}

// NewInventory creates an empty in-memory inventory.
func NewInventory() *Inventory {
	return &Inventory{
		objects: make(map[string]map[string]domain.InterfaceMap),
	}
}

// AddInventory registers iface on path as hosted by service.
func (inv *Inventory) AddInventory(ctx context.Context, service, path, iface string, props domain.PropertyMap) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	services, ok := inv.objects[path]
	if !ok {
		services = make(map[string]domain.InterfaceMap)
		inv.objects[path] = services
	}
	ifaces, ok := services[service]
	if !ok {
		ifaces = make(domain.InterfaceMap)
		services[service] = ifaces
	}

	copied := make(domain.PropertyMap, len(props))
	for k, v := range props {
		copied[k] = v
	}
	ifaces[iface] = copied
	return nil
}

// Subtree returns the objects under root implementing iface.
func (inv *Inventory) Subtree(ctx context.Context, root string, depth int, iface string) (domain.Subtree, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	tree := make(domain.Subtree)
	for path, services := range inv.objects {
		if !domain.UnderRoot(path, root, depth) {
			continue
		}
		for service, ifaces := range services {
			if !ifaces.Has(iface) {
				continue
			}
			names := make([]string, 0, len(ifaces))
			for name := range ifaces {
				names = append(names, name)
			}
			sort.Strings(names)

			if tree[path] == nil {
				tree[path] = make(map[string][]string)
			}
			tree[path][service] = names
		}
	}
	return tree, nil
}

// AllProperties returns a copy of the properties of iface on path.
func (inv *Inventory) AllProperties(ctx context.Context, service, path, iface string) (domain.PropertyMap, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make(domain.PropertyMap)
	for k, v := range inv.objects[path][service][iface] {
		out[k] = v
	}
	return out, nil
}
