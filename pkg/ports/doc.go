/*
Package ports defines the driven ports (interfaces) of the enrichment service.

These interfaces decouple the entry manager from the bus transport, so the
same logic runs against Redis, an in-memory fake, or any future adapter.

# Key Interfaces

  - Bus: enumerates the log store's objects and streams lifecycle signals.
  - Inventory: resolves which service hosts an inventory object and reads its properties.
  - DistributedLocker: serializes per-entry persistence across replicas sharing a volume.
*/
package ports
