/*
Package observability provides tools for monitoring the enrichment service.

It turns the manager's lifecycle hooks into Prometheus metrics and debug
logs. Hooks from several sources can be chained into one set.
*/
package observability
