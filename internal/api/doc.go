// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/audits and GET /v1/audits/... for single-site audits and
//     their PDF reports.
//   - POST /v1/discoveries for lead discovery.
//
// Every /v1 route is scoped to the caller named by the X-User-ID header.
package api
