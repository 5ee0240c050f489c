// Package upstream is the shared outbound HTTP client for the external
// services the election guide depends on (Mapbox, Google Sheets, the
// newsroom site). Every call is rate limited per host, retried with
// jittered exponential backoff on transient failures, and counted in
// Prometheus.
package upstream
