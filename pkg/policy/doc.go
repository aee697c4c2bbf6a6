/*
Package policy classifies error log entries against the IBM error policy table.

A Table is loaded once from a condensed policy document and maps an error
identifier (e.g. xyz.openbmc_project.Error.X) to an ordered list of Details,
each qualified by a search modifier. The Resolver derives the modifier from a
log entry's AdditionalData in two passes and falls back to the table's
default event ID and message when nothing matches.

The condensed document looks like:

	[
	  {
	    "err": "xyz.openbmc_project.Thermal.Error.PowerSupplyHot",
	    "dtls": [
	      {"CEID": "FQPSPCA0065M", "mod": "/xyz/openbmc_project/inventory/system/ps0", "msg": "Power supply 0 is too hot"},
	      {"CEID": "FQPSPCA0066M", "mod": "", "msg": "A power supply is too hot"}
	    ]
	  }
	]

An empty modifier is the catch-all for its error.
*/
package policy
