package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openbmc/ibm-logging/pkg/domain"
)

const signalBuffer = 64

type subscriber struct {
	ch   chan domain.Signal
	done chan struct{}
}

// Bus implements ports.Bus in memory.
// Safe for concurrent use.
type Bus struct {
	mu          sync.Mutex
	objects     domain.ObjectTree
	subscribers map[int]*subscriber
	nextID      int
}

// NewBus creates an empty in-memory bus.
func NewBus() *Bus {
	return &Bus{
		objects:     make(domain.ObjectTree),
		subscribers: make(map[int]*subscriber),
	}
}

// ManagedObjects returns a copy of every object on the bus.
func (b *Bus) ManagedObjects(ctx context.Context) (domain.ObjectTree, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(domain.ObjectTree, len(b.objects))
	for path, ifaces := range b.objects {
		out[path] = copyInterfaces(ifaces)
	}
	return out, nil
}

// Subscribe registers a new signal subscriber.
func (b *Bus) Subscribe(ctx context.Context) (<-chan domain.Signal, error) {
	sub := &subscriber{
		ch:   make(chan domain.Signal, signalBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		close(sub.done)

		b.mu.Lock()
		delete(b.subscribers, id)
		close(sub.ch)
		b.mu.Unlock()
	}()

	return sub.ch, nil
}

// AddEntry places an object on the bus and announces it with InterfacesAdded.
func (b *Bus) AddEntry(ctx context.Context, path string, interfaces domain.InterfaceMap) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[path] = copyInterfaces(interfaces)
	b.publish(domain.Signal{
		Kind:       domain.InterfacesAdded,
		Path:       path,
		Interfaces: copyInterfaces(interfaces),
	})
	return nil
}

// RemoveEntry drops an object and announces it with InterfacesRemoved.
// Removing an unknown path is a no-op.
func (b *Bus) RemoveEntry(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ifaces, ok := b.objects[path]
	if !ok {
		return nil
	}
	delete(b.objects, path)

	removed := make([]string, 0, len(ifaces))
	for name := range ifaces {
		removed = append(removed, name)
	}
	sort.Strings(removed)

	b.publish(domain.Signal{
		Kind:    domain.InterfacesRemoved,
		Path:    path,
		Removed: removed,
	})
	return nil
}

// publish must be called with b.mu held so delivery order matches mutation order.
func (b *Bus) publish(sig domain.Signal) {
	ids := make([]int, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		sub := b.subscribers[id]
		select {
		case sub.ch <- sig:
		case <-sub.done:
		}
	}
}

func copyInterfaces(in domain.InterfaceMap) domain.InterfaceMap {
	out := make(domain.InterfaceMap, len(in))
	for iface, props := range in {
		copied := make(domain.PropertyMap, len(props))
		for k, v := range props {
			copied[k] = v
		}
		out[iface] = copied
	}
	return out
}
