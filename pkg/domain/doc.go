/*
Package domain contains the data model of the ibm-logging enrichment service.

It describes the shapes that travel over the lifecycle bus (property maps,
interface maps, object trees, signals) and the read-only LogEntry snapshot
derived from them. The package is kept free of I/O so that the policy
engine, the callout persistence layer and the entry manager can share it.

# Key Entities

  - LogEntry: immutable snapshot of an entry in the primary error-log store.
  - Association: a typed edge from a log entry to another object (e.g. a callout).
  - Signal: an InterfacesAdded or InterfacesRemoved lifecycle notification.
  - Subtree: the inventory mapper view used to find the service hosting an object.
*/
package domain
