// Package api hosts the HTTP server, middleware, and REST handlers behind the
// election guide front end. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/lookup?address= for the full address lookup.
//   - GET /v1/races/..., /v1/candidates/..., /v1/stories for the directory.
//   - GET /v1/maps/{district_type}/{district} and POST /v1/maps/bounds for map setup.
//   - GET/PUT/DELETE /v1/session/... for the visitor's saved races.
package api
