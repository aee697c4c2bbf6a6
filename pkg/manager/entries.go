package manager

import (
	"context"
	"sort"
	"strconv"

	"github.com/openbmc/ibm-logging/pkg/callout"
	"github.com/openbmc/ibm-logging/pkg/domain"
)

// entryAdded creates the objects for a new entry. An entry that is already
// tracked with the same timestamp is the duplicate announcement of an entry
// found at startup; with a different timestamp the ID was reused and the old
// objects are replaced.
func (m *Manager) entryAdded(ctx context.Context, entry domain.LogEntry, props domain.PropertyMap) {
	if existing, ok := m.registry[entry.ID]; ok {
		if existing.timestamp == entry.Timestamp {
			m.completeRestored(ctx, existing, entry)
			return
		}
		m.logger.Info("Log entry ID reused, replacing objects",
			"entry", entry.ID, "old_timestamp", existing.timestamp, "timestamp", entry.Timestamp)
		m.erase(ctx, entry.ID)
	}

	objs := &entryObjects{
		path:      entry.Path,
		timestamp: entry.Timestamp,
	}

	m.withEntryLock(ctx, entry.ID, func(ctx context.Context) {
		objs.objects = append(objs.objects, m.createPolicy(ctx, entry, props))
		objs.addCallouts(m.createCallouts(ctx, entry)...)
	})

	m.registry[entry.ID] = objs
	m.entryEvent(ctx, m.hooks.OnEntryAdded, domain.EventEntryAdded, entry.ID, objs)
}

// completeRestored handles an add signal for an entry rebuilt from disk.
// If nothing was persisted for it, the entry appeared after the enumeration
// and its callouts have not been looked up yet.
func (m *Manager) completeRestored(ctx context.Context, existing *entryObjects, entry domain.LogEntry) {
	if !existing.restored || len(existing.callouts()) > 0 {
		m.logger.Debug("Ignoring duplicate add for tracked entry", "entry", entry.ID)
		return
	}
	existing.restored = false

	m.withEntryLock(ctx, entry.ID, func(ctx context.Context) {
		existing.addCallouts(m.createCallouts(ctx, entry)...)
	})
}

// restoreEntry rebuilds the objects of an entry that existed at startup.
func (m *Manager) restoreEntry(ctx context.Context, entry domain.LogEntry, props domain.PropertyMap) {
	objs := &entryObjects{
		path:      entry.Path,
		timestamp: entry.Timestamp,
		restored:  true,
	}
	objs.objects = append(objs.objects, m.createPolicy(ctx, entry, props))

	names, err := m.store.ListCallouts(ctx, entry.ID)
	if err != nil {
		m.logger.Error("Failed listing persisted callouts", "entry", entry.ID, "error", err)
	}

	dir := m.store.CalloutDir(entry.ID)
	for _, name := range names {
		index, err := strconv.ParseUint(name, 10, 32)
		if err != nil {
			m.logger.Error("Removing callout file with invalid name", "entry", entry.ID, "file", name)
			if err := m.store.RemoveCallout(ctx, entry.ID, name); err != nil {
				m.logger.Warn("Failed removing callout file", "entry", entry.ID, "file", name, "error", err)
			}
			m.calloutEvent(ctx, domain.CalloutDiscarded, entry.ID, 0, "")
			continue
		}

		c := callout.NewForRestore(entry.Path, uint32(index), entry.ID, entry.Timestamp, callout.WithLogger(m.logger))
		if !c.Restore(dir) {
			m.calloutEvent(ctx, domain.CalloutDiscarded, entry.ID, uint32(index), "")
			continue
		}
		objs.addCallouts(&CalloutObject{Callout: c})
		m.calloutEvent(ctx, domain.CalloutRestored, entry.ID, c.Index, c.InventoryPath)
	}

	m.registry[entry.ID] = objs
	m.entryEvent(ctx, m.hooks.OnEntryAdded, domain.EventEntryAdded, entry.ID, objs)
}

func (m *Manager) createPolicy(ctx context.Context, entry domain.LogEntry, props domain.PropertyMap) *PolicyObject {
	res := m.resolver.Resolve(props)

	if m.hooks.OnPolicyResolved != nil {
		m.hooks.OnPolicyResolved(ctx, &domain.PolicyEvent{
			EventBase: m.event(domain.EventPolicyResolved, entry.ID),
			EventID:   res.EventID,
			Message:   res.Message,
			Outcome:   string(res.Outcome),
		})
	}

	return &PolicyObject{
		path:        entry.Path,
		EventID:     res.EventID,
		Description: res.Message,
	}
}

// createCallouts builds, persists and returns a callout for each "callout"
// association whose endpoint has Asset data. Indexes are contiguous over the
// callouts actually created.
func (m *Manager) createCallouts(ctx context.Context, entry domain.LogEntry) []*CalloutObject {
	var (
		out     []*CalloutObject
		subtree domain.Subtree
		fetched bool
		index   uint32
	)

	dir := m.store.CalloutDir(entry.ID)

	for _, assoc := range entry.Associations {
		if assoc.Forward != domain.CalloutAssociation {
			continue
		}

		if !fetched {
			fetched = true
			var err error
			subtree, err = m.inventory.Subtree(ctx, "/", 0, domain.AssetInterface)
			if err != nil {
				m.logger.Error("Failed getting inventory subtree", "entry", entry.ID, "error", err)
			}
		}
		if len(subtree) == 0 {
			m.logger.Warn("No inventory objects implement the Asset interface", "entry", entry.ID)
			break
		}

		service := subtree.Service(assoc.Endpoint, domain.AssetInterface)
		if service == "" {
			m.logger.Error("No service hosts Asset data for callout", "entry", entry.ID, "inventory", assoc.Endpoint)
			m.calloutEvent(ctx, domain.CalloutSkipped, entry.ID, index, assoc.Endpoint)
			continue
		}

		props, err := m.inventory.AllProperties(ctx, service, assoc.Endpoint, domain.AssetInterface)
		if err != nil {
			m.logger.Error("Failed reading callout Asset properties", "entry", entry.ID, "inventory", assoc.Endpoint, "error", err)
			m.calloutEvent(ctx, domain.CalloutSkipped, entry.ID, index, assoc.Endpoint)
			continue
		}
		if len(props) == 0 {
			m.logger.Error("Callout has no Asset properties", "entry", entry.ID, "inventory", assoc.Endpoint)
			m.calloutEvent(ctx, domain.CalloutSkipped, entry.ID, index, assoc.Endpoint)
			continue
		}

		asset, err := callout.AssetFromProperties(props)
		if err != nil {
			m.logger.Error("Failed decoding callout Asset properties", "entry", entry.ID, "inventory", assoc.Endpoint, "error", err)
			m.calloutEvent(ctx, domain.CalloutSkipped, entry.ID, index, assoc.Endpoint)
			continue
		}

		c := callout.New(entry.Path, assoc.Endpoint, index, entry.ID, entry.Timestamp, asset, callout.WithLogger(m.logger))
		if err := c.Serialize(dir); err != nil {
			// Still hosted; it just will not survive a restart.
			m.logger.Error("Failed persisting callout", "entry", entry.ID, "index", index, "error", err)
		}

		out = append(out, &CalloutObject{Callout: c})
		m.calloutEvent(ctx, domain.CalloutCreated, entry.ID, index, assoc.Endpoint)
		index++
	}

	return out
}

// entryRemoved drops everything for an entry, on disk and in memory.
// Persisted data is removed even if the entry was never tracked.
func (m *Manager) entryRemoved(ctx context.Context, id uint32) {
	objs, tracked := m.registry[id]
	m.erase(ctx, id)
	if !tracked {
		objs = &entryObjects{}
	}
	m.entryEvent(ctx, m.hooks.OnEntryRemoved, domain.EventEntryRemoved, id, objs)
}

func (m *Manager) erase(ctx context.Context, id uint32) {
	m.withEntryLock(ctx, id, func(ctx context.Context) {
		if err := m.store.DeleteEntry(ctx, id); err != nil {
			m.logger.Error("Failed removing persisted callouts", "entry", id, "error", err)
		}
	})
	delete(m.registry, id)
}

// eraseAll removes every tracked entry and returns how many there were.
func (m *Manager) eraseAll(ctx context.Context) int {
	ids := m.sortedIDs()
	for _, id := range ids {
		m.entryRemoved(ctx, id)
	}
	return len(ids)
}

func (m *Manager) sortedIDs() []uint32 {
	ids := make([]uint32, 0, len(m.registry))
	for id := range m.registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Manager) calloutEvent(ctx context.Context, op domain.CalloutOp, id, index uint32, inventoryPath string) {
	if m.hooks.OnCallout == nil {
		return
	}
	m.hooks.OnCallout(ctx, &domain.CalloutEvent{
		EventBase:     m.event(domain.EventCallout, id),
		Op:            op,
		Index:         index,
		InventoryPath: inventoryPath,
	})
}

func (m *Manager) entryEvent(ctx context.Context, hook func(context.Context, *domain.EntryEvent), t domain.EventType, id uint32, objs *entryObjects) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.EntryEvent{
		EventBase: m.event(t, id),
		Path:      objs.path,
		Callouts:  len(objs.callouts()),
		Tracked:   len(m.registry),
	})
}
