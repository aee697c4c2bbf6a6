package ports

import (
	"context"
	"testing"
	"time"

	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BusFixture mutates the log store behind a Bus under test.
type BusFixture interface {
	AddEntry(ctx context.Context, path string, interfaces domain.InterfaceMap) error
	RemoveEntry(ctx context.Context, path string) error
}

// InventoryFixture registers inventory objects behind an Inventory under test.
type InventoryFixture interface {
	AddInventory(ctx context.Context, service, path, iface string, props domain.PropertyMap) error
}

const contractTimeout = 2 * time.Second

// RunBusContract runs a suite of tests to verify that a Bus implementation
// adheres to the defined interface contract.
func RunBusContract(t *testing.T, bus Bus, fixture BusFixture) {
	ctx := context.Background()

	t.Run("ManagedObjects", func(t *testing.T) {
		path := domain.LoggingEntryPath + "/101"
		require.NoError(t, fixture.AddEntry(ctx, path, domain.InterfaceMap{
			domain.LoggingInterface: {
				domain.PropMessage:   "xyz.openbmc_project.Common.Error.InternalFailure",
				domain.PropTimestamp: uint64(1500),
			},
		}))

		objects, err := bus.ManagedObjects(ctx)
		require.NoError(t, err)
		require.Contains(t, objects, path)
		require.True(t, objects[path].Has(domain.LoggingInterface))

		props, err := domain.DecodeEntryProperties(objects[path][domain.LoggingInterface])
		require.NoError(t, err)
		assert.Equal(t, "xyz.openbmc_project.Common.Error.InternalFailure", props.Message)
		assert.Equal(t, uint64(1500), props.Timestamp)

		require.NoError(t, fixture.RemoveEntry(ctx, path))
		objects, err = bus.ManagedObjects(ctx)
		require.NoError(t, err)
		assert.NotContains(t, objects, path)
	})

	t.Run("Subscribe Delivers In Order", func(t *testing.T) {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		signals, err := bus.Subscribe(subCtx)
		require.NoError(t, err)

		path := domain.LoggingEntryPath + "/102"
		require.NoError(t, fixture.AddEntry(ctx, path, domain.InterfaceMap{
			domain.LoggingInterface: {domain.PropMessage: "msg", domain.PropTimestamp: uint64(7)},
		}))
		require.NoError(t, fixture.RemoveEntry(ctx, path))

		added := receive(t, signals)
		assert.Equal(t, domain.InterfacesAdded, added.Kind)
		assert.Equal(t, path, added.Path)
		assert.True(t, added.CarriesLogEntry())

		removed := receive(t, signals)
		assert.Equal(t, domain.InterfacesRemoved, removed.Kind)
		assert.Equal(t, path, removed.Path)
		assert.True(t, removed.CarriesLogEntry())
	})

	t.Run("Subscribe Closes On Cancel", func(t *testing.T) {
		subCtx, cancel := context.WithCancel(ctx)
		signals, err := bus.Subscribe(subCtx)
		require.NoError(t, err)
		cancel()

		deadline := time.After(contractTimeout)
		for {
			select {
			case _, ok := <-signals:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("signal channel not closed after cancel")
			}
		}
	})
}

func receive(t *testing.T, signals <-chan domain.Signal) domain.Signal {
	t.Helper()
	select {
	case sig, ok := <-signals:
		require.True(t, ok, "signal channel closed early")
		return sig
	case <-time.After(contractTimeout):
		t.Fatal("timed out waiting for signal")
	}
	return domain.Signal{}
}

// RunInventoryContract runs a suite of tests to verify that an Inventory
// implementation adheres to the defined interface contract.
func RunInventoryContract(t *testing.T, inventory Inventory, fixture InventoryFixture) {
	ctx := context.Background()

	const (
		service   = "xyz.openbmc_project.Inventory.Manager"
		cpu0      = "/xyz/openbmc_project/inventory/system/chassis/cpu0"
		cpu1      = "/xyz/openbmc_project/inventory/system/chassis/cpu1"
		itemIface = "xyz.openbmc_project.Inventory.Item"
	)

	require.NoError(t, fixture.AddInventory(ctx, service, cpu0, domain.AssetInterface, domain.PropertyMap{
		"Manufacturer": "IBM",
		"Model":        "model",
		"SerialNumber": "SN",
	}))
	require.NoError(t, fixture.AddInventory(ctx, service, cpu1, itemIface, domain.PropertyMap{
		"Present": true,
	}))

	t.Run("Subtree Filters By Interface", func(t *testing.T) {
		tree, err := inventory.Subtree(ctx, "/", 0, domain.AssetInterface)
		require.NoError(t, err)
		require.Contains(t, tree, cpu0)
		assert.NotContains(t, tree, cpu1)
		assert.Contains(t, tree[cpu0][service], domain.AssetInterface)
		assert.Equal(t, service, tree.Service(cpu0, domain.AssetInterface))
	})

	t.Run("Subtree Filters By Root", func(t *testing.T) {
		tree, err := inventory.Subtree(ctx, "/xyz/openbmc_project/logging", 0, domain.AssetInterface)
		require.NoError(t, err)
		assert.Empty(t, tree)
	})

	t.Run("AllProperties", func(t *testing.T) {
		props, err := inventory.AllProperties(ctx, service, cpu0, domain.AssetInterface)
		require.NoError(t, err)
		assert.Equal(t, "IBM", props["Manufacturer"])
		assert.Equal(t, "model", props["Model"])
		assert.Equal(t, "SN", props["SerialNumber"])
	})

	t.Run("AllProperties Unknown Object", func(t *testing.T) {
		props, err := inventory.AllProperties(ctx, service, cpu0+"/nothing", domain.AssetInterface)
		require.NoError(t, err)
		assert.Empty(t, props)
	})
}

// RunLockerContract runs a suite of tests to verify that a DistributedLocker
// implementation adheres to the defined interface contract.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()

	t.Run("Exclusive", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "entry:1", time.Minute)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "entry:1", time.Minute)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		require.NoError(t, unlock(ctx))

		unlock, err = locker.Lock(ctx, "entry:1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Independent Keys", func(t *testing.T) {
		unlockA, err := locker.Lock(ctx, "entry:2", time.Minute)
		require.NoError(t, err)
		unlockB, err := locker.Lock(ctx, "entry:3", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlockA(ctx))
		require.NoError(t, unlockB(ctx))
	})
}
