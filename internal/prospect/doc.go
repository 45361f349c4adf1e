// Package prospect defines the core types and collaborator interfaces shared by
// the discovery and audit pipelines: candidates, scraped pages, score
// breakdowns, opportunity ratings, audit records and the ports used to fetch,
// search, scan, persist and publish them.
package prospect
