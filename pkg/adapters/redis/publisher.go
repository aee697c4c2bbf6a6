package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/openbmc/ibm-logging/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Publisher is the write side of the Redis layout: it registers log objects,
// announces their lifecycle and populates the inventory mapper.
// Producers and tests use it; the enrichment service itself only reads.
type Publisher struct {
	client *backend.Client
	keys   keys
}

// NewPublisher creates a Publisher from an existing client.
func NewPublisher(client *backend.Client, opts ...Option) *Publisher {
	o := buildOptions(opts)
	return &Publisher{
		client: client,
		keys:   keys{prefix: o.prefix},
	}
}

// AddEntry stores the object and then publishes InterfacesAdded.
func (p *Publisher) AddEntry(ctx context.Context, path string, interfaces domain.InterfaceMap) error {
	fields := make(map[string]any, len(interfaces))
	for iface, props := range interfaces {
		data, err := json.Marshal(props)
		if err != nil {
			return fmt.Errorf("failed to marshal %s on %s: %w", iface, path, err)
		}
		fields[iface] = string(data)
	}

	_, err := p.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.SAdd(ctx, p.keys.objects(), path)
		pipe.Del(ctx, p.keys.object(path))
		if len(fields) > 0 {
			pipe.HSet(ctx, p.keys.object(path), fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", path, err)
	}

	return p.publish(ctx, domain.Signal{
		Kind:       domain.InterfacesAdded,
		Path:       path,
		Interfaces: interfaces,
	})
}

// RemoveEntry deletes the object and then publishes InterfacesRemoved.
// Removing an unknown path is a no-op.
func (p *Publisher) RemoveEntry(ctx context.Context, path string) error {
	removed, err := p.client.HKeys(ctx, p.keys.object(path)).Result()
	if err != nil {
		return fmt.Errorf("failed to read object %s: %w", path, err)
	}
	if len(removed) == 0 {
		return nil
	}
	sort.Strings(removed)

	_, err = p.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.SRem(ctx, p.keys.objects(), path)
		pipe.Del(ctx, p.keys.object(path))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove object %s: %w", path, err)
	}

	return p.publish(ctx, domain.Signal{
		Kind:    domain.InterfacesRemoved,
		Path:    path,
		Removed: removed,
	})
}

// AddInventory registers iface on path as hosted by service and stores its properties.
func (p *Publisher) AddInventory(ctx context.Context, service, path, iface string, props domain.PropertyMap) error {
	raw, err := p.client.HGet(ctx, p.keys.mapper(), path).Result()
	if err != nil && err != backend.Nil {
		return fmt.Errorf("failed to read mapper entry %s: %w", path, err)
	}

	services := make(map[string][]string)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &services); err != nil {
			return fmt.Errorf("failed to decode mapper entry %s: %w", path, err)
		}
	}
	if !contains(services[service], iface) {
		services[service] = append(services[service], iface)
		sort.Strings(services[service])
	}

	mapped, err := json.Marshal(services)
	if err != nil {
		return fmt.Errorf("failed to marshal mapper entry %s: %w", path, err)
	}

	fields := make(map[string]any, len(props))
	for name, value := range props {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal property %s: %w", name, err)
		}
		fields[name] = string(data)
	}

	propsKey := p.keys.props(service, path, iface)
	_, err = p.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, p.keys.mapper(), path, string(mapped))
		pipe.Del(ctx, propsKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, propsKey, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store inventory %s: %w", path, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, sig domain.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	if err := p.client.Publish(ctx, p.keys.signals(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s for %s: %w", sig.Kind, sig.Path, err)
	}
	return nil
}
