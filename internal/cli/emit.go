package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/openbmc/ibm-logging/internal/config"
	redisAdapter "github.com/openbmc/ibm-logging/pkg/adapters/redis"
	"github.com/openbmc/ibm-logging/pkg/domain"
)

// EmitOptions describes a test log entry to publish on the redis bus.
type EmitOptions struct {
	Redis          config.Redis
	ID             uint32
	Message        string
	Timestamp      uint64
	AdditionalData []string
	// Callouts are inventory paths associated with the entry.
	Callouts []string
	// Remove publishes the entry's removal instead of its creation.
	Remove bool
}

// Emit publishes a log entry creation or removal.
func Emit(ctx context.Context, w io.Writer, opts EmitOptions) error {
	pub, closeFn, err := newPublisher(ctx, opts.Redis)
	if err != nil {
		return err
	}
	defer closeFn()

	path := domain.LoggingEntryPath + "/" + strconv.FormatUint(uint64(opts.ID), 10)
	if opts.Remove {
		if err := pub.RemoveEntry(ctx, path); err != nil {
			return err
		}
		printSystemMessage(w, "Removed %s", path)
		return nil
	}

	if opts.Timestamp == 0 {
		opts.Timestamp = uint64(time.Now().UnixMilli())
	}
	if opts.AdditionalData == nil {
		opts.AdditionalData = []string{}
	}

	interfaces := domain.InterfaceMap{
		domain.LoggingInterface: {
			domain.PropMessage:        opts.Message,
			domain.PropTimestamp:      opts.Timestamp,
			domain.PropAdditionalData: opts.AdditionalData,
		},
	}
	if len(opts.Callouts) > 0 {
		assocs := make([][]string, 0, len(opts.Callouts))
		for _, inv := range opts.Callouts {
			assocs = append(assocs, []string{domain.CalloutAssociation, "fault", inv})
		}
		interfaces[domain.AssociationsInterface] = domain.PropertyMap{domain.PropAssociations: assocs}
	}

	if err := pub.AddEntry(ctx, path, interfaces); err != nil {
		return err
	}
	printSystemMessage(w, "Created %s (%s)", path, opts.Message)
	return nil
}

// EmitInventory publishes an inventory item carrying asset properties.
func EmitInventory(ctx context.Context, w io.Writer, redis config.Redis, service, path string, asset map[string]string) error {
	pub, closeFn, err := newPublisher(ctx, redis)
	if err != nil {
		return err
	}
	defer closeFn()

	props := make(domain.PropertyMap, len(asset))
	for k, v := range asset {
		props[k] = v
	}
	if err := pub.AddInventory(ctx, service, path, domain.AssetInterface, props); err != nil {
		return err
	}
	printSystemMessage(w, "Published inventory %s on %s", path, service)
	return nil
}

func newPublisher(ctx context.Context, cfg config.Redis) (*redisAdapter.Publisher, func(), error) {
	client := redisAdapter.NewClient(cfg.Addr, cfg.Password, cfg.DB)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	pub := redisAdapter.NewPublisher(client, redisAdapter.WithPrefix(cfg.Prefix))
	return pub, func() { client.Close() }, nil
}
