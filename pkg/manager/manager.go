package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/openbmc/ibm-logging/internal/adapters/file"
	"github.com/openbmc/ibm-logging/internal/logging"
	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/openbmc/ibm-logging/pkg/policy"
	"github.com/openbmc/ibm-logging/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold an entry lock.
const DefaultLockTTL = 30 * time.Second

// ErrSignalStreamClosed is returned by Run when the bus stops delivering signals.
var ErrSignalStreamClosed = errors.New("signal stream closed")

type request struct {
	fn   func(context.Context)
	done chan struct{}
}

// Manager tracks the objects derived from each log entry.
type Manager struct {
	bus       ports.Bus
	inventory ports.Inventory
	resolver  *policy.Resolver
	store     *file.Store

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger

	// Owned by the dispatch loop.
	registry map[uint32]*entryObjects

	requests chan request
	ready    chan struct{}
	stopped  chan struct{}
	runOnce  sync.Once
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking around per-entry persistence.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates a Manager. Callouts are persisted below persistDir.
func New(bus ports.Bus, inventory ports.Inventory, resolver *policy.Resolver, persistDir string, opts ...Option) *Manager {
	m := &Manager{
		bus:       bus,
		inventory: inventory,
		resolver:  resolver,
		store:     file.New(persistDir),
		lockTTL:   DefaultLockTTL,
		logger:    logging.NewNop(),
		registry:  make(map[uint32]*entryObjects),
		requests:  make(chan request),
		ready:     make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ready is closed once startup recovery has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Run subscribes to lifecycle signals, rebuilds the registry from the
// entries that already exist, and then serves signals and requests one at a
// time until ctx is canceled.
//
// The subscription is made before the enumeration so that no entry created
// in between is missed; the duplicate announcement this can cause is
// resolved by comparing timestamps.
//
// Run may only be called once. It returns nil on cancellation.
func (m *Manager) Run(ctx context.Context) error {
	started := false
	m.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("manager already started")
	}
	defer close(m.stopped)

	signals, err := m.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to lifecycle signals: %w", err)
	}

	m.bootstrap(ctx)
	close(m.ready)

	for {
		select {
		case <-ctx.Done():
			return nil

		case sig, ok := <-signals:
			if !ok {
				return m.streamClosed(ctx)
			}
			m.handleSignal(ctx, sig)

		case req := <-m.requests:
			// Requests see every signal already delivered.
			open := m.drain(ctx, signals)
			req.fn(ctx)
			close(req.done)
			if !open {
				return m.streamClosed(ctx)
			}
		}
	}
}

func (m *Manager) streamClosed(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	return ErrSignalStreamClosed
}

// drain handles pending signals without blocking. It reports false if the
// stream was closed.
func (m *Manager) drain(ctx context.Context, signals <-chan domain.Signal) bool {
	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return false
			}
			m.handleSignal(ctx, sig)
		default:
			return true
		}
	}
}

// Do runs fn on the dispatch loop and waits for it to finish.
// ctx only bounds the wait for the loop to accept fn.
func (m *Manager) Do(ctx context.Context, fn func(context.Context)) error {
	req := request{fn: fn, done: make(chan struct{})}

	select {
	case m.requests <- req:
	case <-m.stopped:
		return domain.ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Accepted requests always run; fn may still be writing the caller's results.
	<-req.done
	return nil
}

func (m *Manager) handleSignal(ctx context.Context, sig domain.Signal) {
	handled := sig.CarriesLogEntry()
	var id uint32

	if handled {
		var err error
		id, err = domain.EntryID(sig.Path)
		if err != nil {
			m.logger.Error("Ignoring signal for malformed entry path", "path", sig.Path, "error", err)
			handled = false
		}
	}

	if m.hooks.OnSignal != nil {
		m.hooks.OnSignal(ctx, &domain.SignalEvent{
			EventBase: m.event(domain.EventSignal, id),
			Kind:      sig.Kind,
			Path:      sig.Path,
			Handled:   handled,
		})
	}
	if !handled {
		return
	}

	switch sig.Kind {
	case domain.InterfacesAdded:
		entry, err := domain.ParseEntry(sig.Path, sig.Interfaces)
		if err != nil {
			m.logger.Error("Log entry has undecodable properties, using what decoded", "path", sig.Path, "error", err)
		}
		m.entryAdded(ctx, entry, sig.Interfaces[domain.LoggingInterface])

	case domain.InterfacesRemoved:
		m.entryRemoved(ctx, id)
	}
}

// bootstrap creates policy objects for every existing entry and restores
// the callouts persisted for them. Failures are logged; startup continues.
func (m *Manager) bootstrap(ctx context.Context) {
	objects, err := m.bus.ManagedObjects(ctx)
	if err != nil {
		m.logger.Error("Failed enumerating existing log entries", "error", err)
		return
	}

	paths := make([]string, 0, len(objects))
	for path, ifaces := range objects {
		if ifaces.Has(domain.LoggingInterface) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		entry, err := domain.ParseEntry(path, objects[path])
		if errors.Is(err, domain.ErrInvalidEntryPath) {
			m.logger.Error("Skipping existing log entry", "path", path, "error", err)
			continue
		}
		if err != nil {
			m.logger.Error("Log entry has undecodable properties, using what decoded", "path", path, "error", err)
		}
		m.restoreEntry(ctx, entry, objects[path][domain.LoggingInterface])
	}

	m.logger.Info("Recovered existing log entries", "entries", len(m.registry))
}

// withEntryLock serializes persistence for an entry across replicas.
// Lock failures are logged and the work proceeds unlocked.
func (m *Manager) withEntryLock(ctx context.Context, id uint32, fn func(context.Context)) {
	if m.locker == nil {
		fn(ctx)
		return
	}

	key := "entry:" + strconv.FormatUint(uint64(id), 10)
	unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
	if err != nil {
		m.logger.Warn("Failed to acquire entry lock, proceeding without it", "entry", id, "err", err)
		fn(ctx)
		return
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			m.logger.Warn("Failed to release entry lock (will expire via TTL)", "entry", id, "err", err)
		}
	}()

	fn(ctx)
}

func (m *Manager) event(t domain.EventType, id uint32) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, EntryID: id}
}
