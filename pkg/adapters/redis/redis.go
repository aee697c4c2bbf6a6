// Package redis carries the log store's lifecycle bus and the inventory
// mapper over Redis.
//
// Key layout, relative to the configured prefix:
//
//	objects                          set of log object paths
//	object:<path>                    hash: interface -> JSON property map
//	signals                          pub/sub channel of JSON lifecycle signals
//	mapper                           hash: inventory path -> JSON {service: [interfaces]}
//	props:<service>:<path>:<iface>   hash: property -> JSON value
//	lock:<key>                       distributed lock values
package redis

import (
	"log/slog"

	"github.com/openbmc/ibm-logging/internal/logging"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every key when no prefix is configured.
const DefaultPrefix = "ibmlog:"

type options struct {
	prefix string
	logger *slog.Logger
}

// Option configures the Redis adapters.
type Option func(*options)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLogger sets the logger used for transport warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{
		prefix: DefaultPrefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient creates a Redis client for the given server.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

type keys struct {
	prefix string
}

func (k keys) objects() string {
	return k.prefix + "objects"
}

func (k keys) object(path string) string {
	return k.prefix + "object:" + path
}

func (k keys) signals() string {
	return k.prefix + "signals"
}

func (k keys) mapper() string {
	return k.prefix + "mapper"
}

func (k keys) props(service, path, iface string) string {
	return k.prefix + "props:" + service + ":" + path + ":" + iface
}

func (k keys) lock(key string) string {
	return k.prefix + "lock:" + key
}
