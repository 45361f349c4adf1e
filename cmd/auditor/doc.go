// Package main hosts the auditor entrypoint.
//
// Architecture overview:
//   - CLI: cmd wires cobra subcommands (serve, audit, discover) over one container built by internal/app from the
//     Viper configuration. Every long-lived client (Postgres pool, Redis, GCS, Pub/Sub, Chrome) is opened there and
//     closed after the command finishes.
//   - Fetch pipeline: pages are fetched with the Colly HTTP fetcher first and promoted to a headless Chromedp fetch
//     when the thin-content detector finds too little text. Outbound requests are throttled per host.
//   - Audits: internal/audit runs the accessibility scan (axe-core in Chrome), the SEO heuristics and the optional
//     fact check, persists the record, renders the PDF report into the configured BlobStore and publishes a
//     completion event. Recent audits of the same domain are served from the store or the Redis recency index.
//   - Discovery: internal/discovery pages through business search (Brave API, then DuckDuckGo HTML), scores each
//     candidate site and ranks the leads by opportunity.
//   - Observability: zap logs carry audit IDs, domains and users; Prometheus counters and histograms are exported on
//     /metrics by the serve command.
//
// Quick checklist:
//   - Configure env vars: AUDITOR_SERVER_PORT or PORT, AUDITOR_SEARCH_BRAVE_API_KEY, AUDITOR_DB_DSN,
//     AUDITOR_REDIS_ADDR, AUDITOR_STORAGE_BACKEND with AUDITOR_STORAGE_GCS_BUCKET or AUDITOR_STORAGE_LOCAL_DIR, and
//     AUDITOR_PUBSUB_* when completion events are wanted.
//   - Run locally: go run ./cmd/auditor serve --config config.yaml, or go run ./cmd/auditor audit example.com.
//   - Cloud Run: the container listens on PORT and drains in-flight requests on SIGTERM.
package main
