// Package metrics exposes Prometheus counters and histograms for
// duplicate-check runs and workflow calls.
//
// Every Metrics value owns a private registry, so tests and multiple
// servers in one process never collide on metric names.
package metrics
