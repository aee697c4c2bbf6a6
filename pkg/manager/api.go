package manager

import (
	"context"
	"fmt"

	"github.com/openbmc/ibm-logging/pkg/callout"
	"github.com/openbmc/ibm-logging/pkg/domain"
)

// PolicyView is a read-only copy of a policy object.
type PolicyView struct {
	Path        string `json:"path"`
	EventID     string `json:"eventId"`
	Description string `json:"description"`
}

// CalloutView is a read-only copy of a callout object.
type CalloutView struct {
	Path          string        `json:"path"`
	Index         uint32        `json:"index"`
	InventoryPath string        `json:"inventoryPath"`
	Asset         callout.Asset `json:"asset"`
}

// EntryView is a read-only copy of everything hosted for an entry.
type EntryView struct {
	ID        uint32        `json:"id"`
	Path      string        `json:"path"`
	Timestamp uint64        `json:"timestamp"`
	Policy    PolicyView    `json:"policy"`
	Callouts  []CalloutView `json:"callouts"`
}

// Info describes the manager's configuration.
type Info struct {
	PersistDir     string `json:"persistDir"`
	PolicyLoaded   bool   `json:"policyLoaded"`
	PolicyErrors   int    `json:"policyErrors"`
	DefaultEventID string `json:"defaultEventId"`
	DefaultMessage string `json:"defaultMessage"`
	Locking        bool   `json:"locking"`
}

// Info returns static configuration. It does not touch the registry.
func (m *Manager) Info() Info {
	table := m.resolver.Table()
	return Info{
		PersistDir:     m.store.BasePath,
		PolicyLoaded:   table.IsLoaded(),
		PolicyErrors:   table.Len(),
		DefaultEventID: table.DefaultEventID(),
		DefaultMessage: table.DefaultMessage(),
		Locking:        m.locker != nil,
	}
}

// List returns every tracked entry ordered by ID.
func (m *Manager) List(ctx context.Context) ([]EntryView, error) {
	var views []EntryView
	err := m.Do(ctx, func(ctx context.Context) {
		views = make([]EntryView, 0, len(m.registry))
		for _, id := range m.sortedIDs() {
			views = append(views, view(id, m.registry[id]))
		}
	})
	return views, err
}

// Lookup returns a tracked entry.
func (m *Manager) Lookup(ctx context.Context, id uint32) (EntryView, error) {
	var (
		v     EntryView
		found bool
	)
	err := m.Do(ctx, func(ctx context.Context) {
		var objs *entryObjects
		if objs, found = m.registry[id]; found {
			v = view(id, objs)
		}
	})
	if err != nil {
		return EntryView{}, err
	}
	if !found {
		return EntryView{}, fmt.Errorf("%w: %d", domain.ErrEntryNotFound, id)
	}
	return v, nil
}

// Callout returns one callout of a tracked entry.
func (m *Manager) Callout(ctx context.Context, id, index uint32) (CalloutView, error) {
	v, err := m.Lookup(ctx, id)
	if err != nil {
		return CalloutView{}, err
	}
	for _, c := range v.Callouts {
		if c.Index == index {
			return c, nil
		}
	}
	return CalloutView{}, fmt.Errorf("%w: entry %d index %d", domain.ErrCalloutNotFound, id, index)
}

// Delete removes the objects and persisted callouts of an entry.
// The entry itself lives in the log store and is not touched.
func (m *Manager) Delete(ctx context.Context, id uint32) error {
	var found bool
	err := m.Do(ctx, func(ctx context.Context) {
		if _, found = m.registry[id]; found {
			m.entryRemoved(ctx, id)
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %d", domain.ErrEntryNotFound, id)
	}
	return nil
}

// DeleteAll removes every tracked entry's objects and persisted callouts.
// It returns how many entries were removed.
func (m *Manager) DeleteAll(ctx context.Context) (int, error) {
	var n int
	err := m.Do(ctx, func(ctx context.Context) {
		n = m.eraseAll(ctx)
	})
	return n, err
}

func view(id uint32, objs *entryObjects) EntryView {
	v := EntryView{
		ID:        id,
		Path:      objs.path,
		Timestamp: objs.timestamp,
		Callouts:  []CalloutView{},
	}
	if p := objs.policy(); p != nil {
		v.Policy = PolicyView{
			Path:        p.ObjectPath(),
			EventID:     p.EventID,
			Description: p.Description,
		}
	}
	for _, c := range objs.callouts() {
		v.Callouts = append(v.Callouts, CalloutView{
			Path:          c.ObjectPath(),
			Index:         c.Index,
			InventoryPath: c.InventoryPath,
			Asset:         c.Asset,
		})
	}
	return v
}
