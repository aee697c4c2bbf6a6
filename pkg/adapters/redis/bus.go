package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openbmc/ibm-logging/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Bus implements ports.Bus using Redis.
type Bus struct {
	client *backend.Client
	keys   keys
	logger *slog.Logger
}

// NewBus creates a Redis bus reader from an existing client.
func NewBus(client *backend.Client, opts ...Option) *Bus {
	o := buildOptions(opts)
	return &Bus{
		client: client,
		keys:   keys{prefix: o.prefix},
		logger: o.logger,
	}
}

// ManagedObjects enumerates every log object registered in Redis.
func (b *Bus) ManagedObjects(ctx context.Context) (domain.ObjectTree, error) {
	paths, err := b.client.SMembers(ctx, b.keys.objects()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	pipe := b.client.Pipeline()
	cmds := make(map[string]*backend.MapStringStringCmd, len(paths))
	for _, path := range paths {
		cmds[path] = pipe.HGetAll(ctx, b.keys.object(path))
	}
	if len(paths) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to read objects: %w", err)
		}
	}

	tree := make(domain.ObjectTree, len(paths))
	for path, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		ifaces, err := decodeInterfaces(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to decode object %s: %w", path, err)
		}
		tree[path] = ifaces
	}
	return tree, nil
}

// Subscribe listens on the signals channel. The subscription is confirmed
// by the server before Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context) (<-chan domain.Signal, error) {
	pubsub := b.client.Subscribe(ctx, b.keys.signals())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.keys.signals(), err)
	}

	messages := pubsub.Channel()
	out := make(chan domain.Signal)

	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var sig domain.Signal
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					b.logger.Warn("dropping malformed signal", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- sig:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func decodeInterfaces(fields map[string]string) (domain.InterfaceMap, error) {
	ifaces := make(domain.InterfaceMap, len(fields))
	for iface, raw := range fields {
		var props domain.PropertyMap
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			return nil, fmt.Errorf("interface %s: %w", iface, err)
		}
		ifaces[iface] = props
	}
	return ifaces, nil
}
