// Package metrics exports resolution events as Prometheus counters and can
// write them to a node exporter textfile after a CLI run.
package metrics
