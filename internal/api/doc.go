// Package api provides the HTTP server for triggering scrape runs.
//
// Routes:
//
//	GET  /healthz                       liveness probe
//	GET  /readyz                        readiness probe (DB ping)
//	GET  /metrics                       Prometheus metrics
//	POST /v1/scrape                     run the pipeline for an organization
//	POST /v1/sources/{source_id}/test   dry-run a single source
//
// The /v1 routes accept an API key via the X-API-Key header or the
// api_key query parameter when auth is enabled.
package api
