package manager_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openbmc/ibm-logging/pkg/adapters/memory"
	"github.com/openbmc/ibm-logging/pkg/callout"
	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/openbmc/ibm-logging/pkg/manager"
	"github.com/openbmc/ibm-logging/pkg/policy"
	"github.com/openbmc/ibm-logging/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testError   = "xyz.openbmc_project.Error.Test1"
	testEID     = "ABCD1234"
	invService  = "xyz.openbmc_project.Inventory.Manager"
	cpu0        = "/xyz/openbmc_project/inventory/system/chassis/cpu0"
	cpu1        = "/xyz/openbmc_project/inventory/system/chassis/cpu1"
	policyTable = `[{"err": "xyz.openbmc_project.Error.Test1", "dtls": [{"CEID": "ABCD1234", "mod": "", "msg": "Error ABCD1234"}]}]`
)

func entryPath(id string) string {
	return domain.LoggingEntryPath + "/" + id
}

func entryInterfaces(timestamp uint64, callouts ...string) domain.InterfaceMap {
	ifaces := domain.InterfaceMap{
		domain.LoggingInterface: {
			domain.PropMessage:        testError,
			domain.PropTimestamp:      timestamp,
			domain.PropAdditionalData: []string{"FOO=BAR"},
		},
	}
	if len(callouts) > 0 {
		assocs := make([][]string, 0, len(callouts))
		for _, c := range callouts {
			assocs = append(assocs, []string{domain.CalloutAssociation, "fault", c})
		}
		ifaces[domain.AssociationsInterface] = domain.PropertyMap{domain.PropAssociations: assocs}
	}
	return ifaces
}

func assetProps(serial string) domain.PropertyMap {
	return domain.PropertyMap{
		"BuildDate":    "20181102",
		"Manufacturer": "IBM",
		"Model":        "model",
		"PartNumber":   "PN",
		"SerialNumber": serial,
	}
}

type harness struct {
	bus       *memory.Bus
	inventory *memory.Inventory
	dir       string
	opts      []manager.Option

	mgr    *manager.Manager
	cancel context.CancelFunc
	done   chan error
}

func newHarness(t *testing.T, opts ...manager.Option) *harness {
	t.Helper()
	return &harness{
		bus:       memory.NewBus(),
		inventory: memory.NewInventory(),
		dir:       t.TempDir(),
		opts:      opts,
	}
}

func (h *harness) start(t *testing.T) *manager.Manager {
	t.Helper()

	table := policy.NewTable()
	require.NoError(t, table.LoadDocument(strings.NewReader(policyTable)))

	h.mgr = manager.New(h.bus, h.inventory, policy.NewResolver(table), h.dir, h.opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.mgr.Run(ctx) }()

	select {
	case <-h.mgr.Ready():
	case err := <-h.done:
		t.Fatalf("manager stopped during startup: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not become ready")
	}

	t.Cleanup(func() { h.stop(t) })
	return h.mgr
}

func (h *harness) stop(t *testing.T) {
	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func (h *harness) calloutFile(id, index string) string {
	return filepath.Join(h.dir, id, "callouts", index)
}

func (h *harness) persist(t *testing.T, id uint32, index uint32, timestamp uint64, inventoryPath string) {
	t.Helper()
	c := callout.New(entryPath(strconv.FormatUint(uint64(id), 10)), inventoryPath, index, id, timestamp, callout.Asset{SerialNumber: "persisted"})
	require.NoError(t, c.Serialize(filepath.Join(h.dir, strconv.FormatUint(uint64(id), 10), "callouts")))
}

func TestManager_EntryAdded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu1, domain.AssetInterface, assetProps("SN1")))
	mgr := h.start(t)

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("1"), entryInterfaces(100, cpu0, cpu1)))

	v, err := mgr.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, entryPath("1"), v.Path)
	assert.Equal(t, uint64(100), v.Timestamp)
	assert.Equal(t, testEID, v.Policy.EventID)
	assert.Equal(t, "Error ABCD1234", v.Policy.Description)
	assert.Equal(t, entryPath("1"), v.Policy.Path)

	require.Len(t, v.Callouts, 2)
	assert.Equal(t, uint32(0), v.Callouts[0].Index)
	assert.Equal(t, cpu0, v.Callouts[0].InventoryPath)
	assert.Equal(t, "SN0", v.Callouts[0].Asset.SerialNumber)
	assert.Equal(t, entryPath("1")+"/callouts/0", v.Callouts[0].Path)
	assert.Equal(t, uint32(1), v.Callouts[1].Index)
	assert.Equal(t, cpu1, v.Callouts[1].InventoryPath)

	assert.FileExists(t, h.calloutFile("1", "0"))
	assert.FileExists(t, h.calloutFile("1", "1"))

	restored := callout.NewForRestore(entryPath("1"), 1, 1, 100)
	require.True(t, restored.Restore(filepath.Join(h.dir, "1", "callouts")))
	assert.Equal(t, "SN1", restored.Asset.SerialNumber)

	c, err := mgr.Callout(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, cpu1, c.InventoryPath)

	_, err = mgr.Callout(ctx, 1, 5)
	assert.ErrorIs(t, err, domain.ErrCalloutNotFound)
}

func TestManager_CalloutIndexesStayContiguous(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))
	mgr := h.start(t)

	// The first endpoint is not in the inventory and is skipped.
	require.NoError(t, h.bus.AddEntry(ctx, entryPath("2"), entryInterfaces(100, cpu1, cpu0)))

	v, err := mgr.Lookup(ctx, 2)
	require.NoError(t, err)
	require.Len(t, v.Callouts, 1)
	assert.Equal(t, uint32(0), v.Callouts[0].Index)
	assert.Equal(t, cpu0, v.Callouts[0].InventoryPath)
	assert.NoFileExists(t, h.calloutFile("2", "1"))
}

func TestManager_NoAssetInventory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mgr := h.start(t)

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("3"), entryInterfaces(100, cpu0)))

	v, err := mgr.Lookup(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, testEID, v.Policy.EventID)
	assert.Empty(t, v.Callouts)
}

func TestManager_EntryRemoved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))
	mgr := h.start(t)

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("4"), entryInterfaces(100, cpu0)))
	_, err := mgr.Lookup(ctx, 4)
	require.NoError(t, err)
	assert.FileExists(t, h.calloutFile("4", "0"))

	require.NoError(t, h.bus.RemoveEntry(ctx, entryPath("4")))

	_, err = mgr.Lookup(ctx, 4)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	assert.NoDirExists(t, filepath.Join(h.dir, "4"))
}

func TestManager_Bootstrap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("1"), entryInterfaces(100, cpu0)))
	require.NoError(t, h.bus.AddEntry(ctx, entryPath("2"), entryInterfaces(200)))
	require.NoError(t, h.bus.AddEntry(ctx, "/xyz/openbmc_project/logging/internal/manager", domain.InterfaceMap{
		"xyz.openbmc_project.Collection.DeleteAll": {},
	}))

	h.persist(t, 1, 0, 100, cpu0)
	h.persist(t, 1, 1, 999, cpu1) // stale timestamp
	require.NoError(t, os.WriteFile(h.calloutFile("1", "junk"), []byte("x"), 0644))

	mgr := h.start(t)

	entries, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(1), entries[0].ID)
	assert.Equal(t, uint32(2), entries[1].ID)
	assert.Equal(t, testEID, entries[1].Policy.EventID)
	assert.Empty(t, entries[1].Callouts)

	require.Len(t, entries[0].Callouts, 1)
	assert.Equal(t, cpu0, entries[0].Callouts[0].InventoryPath)
	assert.Equal(t, "persisted", entries[0].Callouts[0].Asset.SerialNumber)

	assert.FileExists(t, h.calloutFile("1", "0"))
	assert.NoFileExists(t, h.calloutFile("1", "1"))
	assert.NoFileExists(t, h.calloutFile("1", "junk"))
}

func TestManager_DuplicateAdd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu1, domain.AssetInterface, assetProps("SN1")))

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("1"), entryInterfaces(100, cpu0)))
	h.persist(t, 1, 0, 100, cpu0)
	mgr := h.start(t)

	t.Run("Same Timestamp Is Ignored", func(t *testing.T) {
		require.NoError(t, h.bus.AddEntry(ctx, entryPath("1"), entryInterfaces(100, cpu1)))

		v, err := mgr.Lookup(ctx, 1)
		require.NoError(t, err)
		require.Len(t, v.Callouts, 1)
		assert.Equal(t, cpu0, v.Callouts[0].InventoryPath)
		assert.Equal(t, "persisted", v.Callouts[0].Asset.SerialNumber)
	})

	t.Run("New Timestamp Replaces", func(t *testing.T) {
		require.NoError(t, h.bus.AddEntry(ctx, entryPath("1"), entryInterfaces(200, cpu1)))

		v, err := mgr.Lookup(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), v.Timestamp)
		require.Len(t, v.Callouts, 1)
		assert.Equal(t, cpu1, v.Callouts[0].InventoryPath)
		assert.Equal(t, "SN1", v.Callouts[0].Asset.SerialNumber)

		restored := callout.NewForRestore(entryPath("1"), 0, 1, 200)
		assert.True(t, restored.Restore(filepath.Join(h.dir, "1", "callouts")))
	})
}

func TestManager_AddDuringStartupGetsCallouts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))

	// Seen by the enumeration with nothing persisted, then announced.
	require.NoError(t, h.bus.AddEntry(ctx, entryPath("7"), entryInterfaces(100, cpu0)))
	mgr := h.start(t)
	require.NoError(t, h.bus.AddEntry(ctx, entryPath("7"), entryInterfaces(100, cpu0)))

	v, err := mgr.Lookup(ctx, 7)
	require.NoError(t, err)
	require.Len(t, v.Callouts, 1)
	assert.Equal(t, "SN0", v.Callouts[0].Asset.SerialNumber)
	assert.FileExists(t, h.calloutFile("7", "0"))
}

func TestManager_IgnoresUnrelatedSignals(t *testing.T) {
	var (
		mu     sync.Mutex
		events []domain.SignalEvent
	)
	h := newHarness(t, manager.WithLifecycleHooks(domain.LifecycleHooks{
		OnSignal: func(ctx context.Context, e *domain.SignalEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, *e)
		},
	}))
	ctx := context.Background()
	mgr := h.start(t)

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("5"), domain.InterfaceMap{
		"xyz.openbmc_project.Object.Delete": {},
	}))
	require.NoError(t, h.bus.AddEntry(ctx, entryPath("not-a-number"), entryInterfaces(1)))

	entries, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.False(t, events[0].Handled)
	assert.False(t, events[1].Handled)
}

func TestManager_DeleteAPI(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))
	mgr := h.start(t)

	assert.ErrorIs(t, mgr.Delete(ctx, 42), domain.ErrEntryNotFound)

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("1"), entryInterfaces(100, cpu0)))
	require.NoError(t, h.bus.AddEntry(ctx, entryPath("2"), entryInterfaces(100, cpu0)))

	require.NoError(t, mgr.Delete(ctx, 1))
	_, err := mgr.Lookup(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	assert.NoDirExists(t, filepath.Join(h.dir, "1"))
	assert.DirExists(t, filepath.Join(h.dir, "2"))

	n, err := mgr.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoDirExists(t, filepath.Join(h.dir, "2"))

	// The log store still has both entries.
	objects, err := h.bus.ManagedObjects(ctx)
	require.NoError(t, err)
	assert.Len(t, objects, 2)
}

func TestManager_Hooks(t *testing.T) {
	var (
		mu       sync.Mutex
		outcomes []string
		ops      []domain.CalloutOp
		tracked  []int
	)
	hooks := domain.LifecycleHooks{
		OnPolicyResolved: func(ctx context.Context, e *domain.PolicyEvent) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, e.Outcome)
		},
		OnCallout: func(ctx context.Context, e *domain.CalloutEvent) {
			mu.Lock()
			defer mu.Unlock()
			ops = append(ops, e.Op)
		},
		OnEntryAdded: func(ctx context.Context, e *domain.EntryEvent) {
			mu.Lock()
			defer mu.Unlock()
			tracked = append(tracked, e.Tracked)
		},
		OnEntryRemoved: func(ctx context.Context, e *domain.EntryEvent) {
			mu.Lock()
			defer mu.Unlock()
			tracked = append(tracked, e.Tracked)
		},
	}

	h := newHarness(t, manager.WithLifecycleHooks(hooks))
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))
	mgr := h.start(t)

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("1"), entryInterfaces(100, cpu0, cpu1)))
	require.NoError(t, h.bus.RemoveEntry(ctx, entryPath("1")))
	_, err := mgr.List(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{string(policy.OutcomeSecondPass)}, outcomes)
	assert.Equal(t, []domain.CalloutOp{domain.CalloutCreated, domain.CalloutSkipped}, ops)
	assert.Equal(t, []int{1, 0}, tracked)
}

type recordingLocker struct {
	ports.DistributedLocker
	mu   sync.Mutex
	keys []string
}

func (r *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return r.DistributedLocker.Lock(ctx, key, ttl)
}

func TestManager_LocksEntryPersistence(t *testing.T) {
	locker := &recordingLocker{DistributedLocker: memory.NewLocker()}
	h := newHarness(t, manager.WithLocker(locker), manager.WithLockTTL(time.Second))
	ctx := context.Background()
	mgr := h.start(t)

	require.NoError(t, h.bus.AddEntry(ctx, entryPath("9"), entryInterfaces(100)))
	require.NoError(t, h.bus.RemoveEntry(ctx, entryPath("9")))
	_, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.True(t, mgr.Info().Locking)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Equal(t, []string{"entry:9", "entry:9"}, locker.keys)
}

func TestManager_Info(t *testing.T) {
	h := newHarness(t)
	mgr := h.start(t)

	info := mgr.Info()
	assert.Equal(t, h.dir, info.PersistDir)
	assert.True(t, info.PolicyLoaded)
	assert.Equal(t, 1, info.PolicyErrors)
	assert.Equal(t, policy.FallbackEventID, info.DefaultEventID)
	assert.False(t, info.Locking)
}

func TestManager_RequestsAfterStop(t *testing.T) {
	h := newHarness(t)
	mgr := h.start(t)
	h.stop(t)

	_, err := mgr.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrLoopStopped)
}

type closedBus struct {
	subscribeErr error
}

func (b closedBus) ManagedObjects(ctx context.Context) (domain.ObjectTree, error) {
	return domain.ObjectTree{}, nil
}

func (b closedBus) Subscribe(ctx context.Context) (<-chan domain.Signal, error) {
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	ch := make(chan domain.Signal)
	close(ch)
	return ch, nil
}

func TestManager_RunErrors(t *testing.T) {
	resolver := policy.NewResolver(policy.NewTable())

	t.Run("Stream Closed", func(t *testing.T) {
		mgr := manager.New(closedBus{}, memory.NewInventory(), resolver, t.TempDir())
		assert.ErrorIs(t, mgr.Run(context.Background()), manager.ErrSignalStreamClosed)
		assert.Error(t, mgr.Run(context.Background()), "second Run must fail")
	})

	t.Run("Subscribe Fails", func(t *testing.T) {
		mgr := manager.New(closedBus{subscribeErr: assert.AnError}, memory.NewInventory(), resolver, t.TempDir())
		assert.ErrorIs(t, mgr.Run(context.Background()), assert.AnError)
	})
}

// malformedEntry carries an association that is not a triple.
func malformedEntry(timestamp uint64) domain.InterfaceMap {
	ifaces := entryInterfaces(timestamp)
	ifaces[domain.AssociationsInterface] = domain.PropertyMap{
		domain.PropAssociations: []any{[]any{domain.CalloutAssociation, "fault"}},
	}
	return ifaces
}

func TestManager_MalformedEntryKeepsPolicy(t *testing.T) {
	t.Run("Added", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))
		mgr := h.start(t)

		require.NoError(t, h.bus.AddEntry(ctx, entryPath("5"), malformedEntry(100)))

		v, err := mgr.Lookup(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), v.Timestamp)
		assert.Equal(t, testEID, v.Policy.EventID)
		assert.Empty(t, v.Callouts)
	})

	t.Run("Existing At Startup", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.bus.AddEntry(ctx, entryPath("5"), malformedEntry(100)))
		mgr := h.start(t)

		entries, err := mgr.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, uint32(5), entries[0].ID)
		assert.Equal(t, testEID, entries[0].Policy.EventID)
		assert.Empty(t, entries[0].Callouts)
	})
}

func TestManager_RequestsUnderCancellation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.AddInventory(ctx, invService, cpu0, domain.AssetInterface, assetProps("SN0")))
	mgr := h.start(t)

	t.Run("Already Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		ran := false
		err := mgr.Do(cctx, func(context.Context) { ran = true })
		if err == nil {
			assert.True(t, ran, "accepted request must run before Do returns")
		} else {
			assert.ErrorIs(t, err, context.Canceled)
		}
	})

	// Run with -race: a request accepted before cancellation must finish
	// writing its results before the caller reads them.
	t.Run("Cancelled Mid Request", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			id := strconv.Itoa(i + 1)
			require.NoError(t, h.bus.AddEntry(ctx, entryPath(id), entryInterfaces(100, cpu0)))

			cctx, cancel := context.WithCancel(ctx)
			go cancel()
			views, err := mgr.List(cctx)
			if err != nil {
				assert.ErrorIs(t, err, context.Canceled)
			} else {
				for _, v := range views {
					assert.Equal(t, testEID, v.Policy.EventID)
				}
			}

			cctx, cancel = context.WithCancel(ctx)
			go cancel()
			n, err := mgr.DeleteAll(cctx)
			if err != nil {
				assert.ErrorIs(t, err, context.Canceled)
			} else {
				assert.GreaterOrEqual(t, n, 0)
			}
		}
	})

	entries, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 200)
}
