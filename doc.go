/*
Package ibmlogging is a service that watches the BMC's error log and attaches
IBM specific metadata to every log entry.

For each entry created by the logging service it publishes two kinds of
derived objects below the entry's object path:

  - a policy object carrying the Common Event ID and description resolved
    from a policy table, keyed by the entry's error name and a modifier taken
    from its additional data;
  - one callout object per hardware callout association, carrying the
    inventory path and the FRU's asset data (part number, serial number,
    manufacturer, model, build date).

Callouts are persisted to disk in a versioned binary format so they survive
a restart even if the inventory has changed since the error was logged.
When an entry is removed its derived objects and persisted files go with it.

# Architecture

The service follows a Hexagonal Architecture. The manager owns every derived
object and serves lifecycle signals and operator requests on a single
dispatch loop. The object bus and inventory are ports with Redis and
in-memory adapters. The derived objects are exposed over HTTP and MCP.

# Usage

	cfg, err := config.Load("/etc/ibm-logging/ibmlogd.yaml")
	if err != nil {
		log.Fatal(err)
	}

	svc, err := ibmlogging.New(ctx, cfg, ibmlogging.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	go http.ListenAndServe(cfg.HTTP.Addr, svc.Handler())
	if err := svc.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package ibmlogging
