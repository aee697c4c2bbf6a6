/*
Package manager keeps the service's derived objects in step with the primary
log store.

For every log entry it creates a policy object (the classification found by
the policy resolver) and one callout object per "callout" association whose
inventory item exposes Asset data. Callouts are persisted under

	<persist dir>/<entry id>/callouts/<index>

and restored at startup, so the asset detail survives even if the inventory
changes later.

All registry access happens on the dispatch loop started by Run. Operator
requests (List, Lookup, Delete, DeleteAll) are submitted to the same loop,
so they observe every signal delivered before them.
*/
package manager
