package ibmlogging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openbmc/ibm-logging/internal/config"
	"github.com/openbmc/ibm-logging/internal/logging"
	httpAdapter "github.com/openbmc/ibm-logging/pkg/adapters/http"
	mcpAdapter "github.com/openbmc/ibm-logging/pkg/adapters/mcp"
	"github.com/openbmc/ibm-logging/pkg/adapters/memory"
	redisAdapter "github.com/openbmc/ibm-logging/pkg/adapters/redis"
	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/openbmc/ibm-logging/pkg/manager"
	"github.com/openbmc/ibm-logging/pkg/observability"
	"github.com/openbmc/ibm-logging/pkg/policy"
	"github.com/openbmc/ibm-logging/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// Version is the daemon version.
const Version = "1.0.0"

// connectTimeout bounds the initial transport check.
const connectTimeout = 5 * time.Second

// Service wires the policy table, the object transport, metrics and the
// manager into a runnable daemon.
type Service struct {
	Manager   *manager.Manager
	Table     *policy.Table
	Bus       ports.Bus
	Inventory ports.Inventory
	Streams   *httpAdapter.StreamManager
	Registry  *prometheus.Registry

	locker ports.DistributedLocker
	hooks  domain.LifecycleHooks
	client *backend.Client
	logger *slog.Logger
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers extra observability hooks. They run after
// the built-in metrics, debug and stream hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithTransport injects a bus and inventory, bypassing the configured backend.
func WithTransport(bus ports.Bus, inventory ports.Inventory) Option {
	return func(s *Service) {
		s.Bus = bus
		s.Inventory = inventory
	}
}

// New builds a Service from cfg. The policy table is loaded here; a missing
// or malformed table is logged and the service runs with default
// classifications. An unreachable redis backend is an error.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		Registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	s.Table = policy.NewTable(
		policy.WithDefaults(cfg.Policy.DefaultEID, cfg.Policy.DefaultMsg),
		policy.WithTableLogger(s.logger),
	)
	if cfg.Policy.Path != "" {
		_ = s.Table.Load(cfg.Policy.Path) // Load logs its own failures
	}
	resolver := policy.NewResolver(s.Table, policy.WithResolverLogger(s.logger))

	if s.Bus == nil || s.Inventory == nil {
		if err := s.connect(ctx, cfg.Transport); err != nil {
			return nil, err
		}
	}

	metrics, err := observability.NewMetrics(s.Registry)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	s.Streams = httpAdapter.NewStreamManager(s.logger)

	hooks := observability.Chain(
		metrics.Hooks(),
		observability.DebugHooks(s.logger),
		s.Streams.Hooks(),
		s.hooks,
	)

	mgrOpts := []manager.Option{
		manager.WithLifecycleHooks(hooks),
		manager.WithLogger(s.logger),
	}
	if s.locker != nil {
		mgrOpts = append(mgrOpts, manager.WithLocker(s.locker))
	}
	s.Manager = manager.New(s.Bus, s.Inventory, resolver, cfg.PersistDir, mgrOpts...)

	return s, nil
}

func (s *Service) connect(ctx context.Context, transport config.Transport) error {
	switch transport.Backend {
	case config.BackendMemory:
		s.Bus = memory.NewBus()
		s.Inventory = memory.NewInventory()
		s.locker = memory.NewLocker()
		s.logger.Info("Using in-memory object transport")
		return nil

	case config.BackendRedis:
		client := redisAdapter.NewClient(transport.Redis.Addr, transport.Redis.Password, transport.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", transport.Redis.Addr, err)
		}

		redisOpts := []redisAdapter.Option{
			redisAdapter.WithPrefix(transport.Redis.Prefix),
			redisAdapter.WithLogger(s.logger),
		}
		s.client = client
		s.Bus = redisAdapter.NewBus(client, redisOpts...)
		s.Inventory = redisAdapter.NewInventory(client, redisOpts...)
		s.locker = redisAdapter.NewLocker(client, redisOpts...)
		s.logger.Info("Connected to redis object transport", "addr", transport.Redis.Addr)
		return nil

	default:
		return fmt.Errorf("unknown transport backend %q", transport.Backend)
	}
}

// Run runs the manager until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.Manager.Run(ctx)
}

// Handler returns the HTTP API for the service.
func (s *Service) Handler() http.Handler {
	return httpAdapter.NewHandler(s.Manager,
		httpAdapter.WithStreams(s.Streams),
		httpAdapter.WithGatherer(s.Registry),
		httpAdapter.WithVersion(Version),
		httpAdapter.WithLogger(s.logger),
	)
}

// MCPServer returns an MCP server exposing the service's entries.
func (s *Service) MCPServer() *mcpAdapter.Server {
	return mcpAdapter.NewServer(s.Manager, Version, mcpAdapter.WithLogger(s.logger))
}

// Close releases the transport connection.
func (s *Service) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
