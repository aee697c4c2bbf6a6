package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openbmc/ibm-logging/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Inventory implements ports.Inventory using Redis.
type Inventory struct {
	client *backend.Client
	keys   keys
	logger *slog.Logger
}

// NewInventory creates a Redis inventory reader from an existing client.
func NewInventory(client *backend.Client, opts ...Option) *Inventory {
	o := buildOptions(opts)
	return &Inventory{
		client: client,
		keys:   keys{prefix: o.prefix},
		logger: o.logger,
	}
}

// Subtree reads the mapper hash and keeps the objects under root that
// implement iface.
func (inv *Inventory) Subtree(ctx context.Context, root string, depth int, iface string) (domain.Subtree, error) {
	entries, err := inv.client.HGetAll(ctx, inv.keys.mapper()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mapper: %w", err)
	}

	tree := make(domain.Subtree)
	for path, raw := range entries {
		if !domain.UnderRoot(path, root, depth) {
			continue
		}

		var services map[string][]string
		if err := json.Unmarshal([]byte(raw), &services); err != nil {
			inv.logger.Warn("skipping malformed mapper entry", "path", path, "error", err)
			continue
		}

		for service, ifaces := range services {
			if !contains(ifaces, iface) {
				continue
			}
			if tree[path] == nil {
				tree[path] = make(map[string][]string)
			}
			tree[path][service] = ifaces
		}
	}
	return tree, nil
}

// AllProperties reads the property hash of iface on path.
func (inv *Inventory) AllProperties(ctx context.Context, service, path, iface string) (domain.PropertyMap, error) {
	fields, err := inv.client.HGetAll(ctx, inv.keys.props(service, path, iface)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read properties of %s: %w", path, err)
	}

	props := make(domain.PropertyMap, len(fields))
	for name, raw := range fields {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("failed to decode property %s of %s: %w", name, path, err)
		}
		props[name] = value
	}
	return props, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
