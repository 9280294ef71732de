// Package main hosts the event scraper service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and scrape trigger endpoints. A POST /v1/scrape request
//     is validated and handed to the orchestrator, which runs the full acquisition pipeline synchronously and returns
//     a run summary. POST /v1/sources/{id}/test dry-runs a single source without persisting anything.
//   - Orchestration: internal/orchestrator loads active sources for the organization, skips recently scraped ones,
//     keeps the most reliable when over the per-run cap, and walks them in small concurrent batches with a paced delay
//     between batches. Per-source panics are contained so one bad adapter cannot sink a run.
//   - Fetch pipeline: internal/fetch tries strategies in cost order: a rendering premium proxy when a credential is
//     configured, a direct Colly fetch with rotating browser identities, public CORS relays, and optionally a headless
//     Chromedp render. The first strategy returning usable HTML wins.
//   - Extraction: internal/adapters picks a site adapter per source (configured selectors, Eventbrite, Meetup, RSS/ICS
//     feeds, library calendars, or the generic heuristic) and internal/relevance scores candidates against the
//     source's keywords before they are accepted.
//   - Persistence & fanout: events are deduplicated on insert into Postgres, raw HTML is archived to the configured
//     blob backend (memory/local/GCS), per-source reliability metrics are smoothed and written back, and a compact
//     Pub/Sub notification is published when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: batches of sources fan out on goroutines; batch starts are paced by a rate limiter. The
//     headless fetcher has its own parallelism semaphore. Shutdown is coordinated via context cancellation.
//   - Observability: zap logs carry run IDs and source names at key transitions; Prometheus counters/histograms track
//     fetch strategy outcomes, per-source results, and API activity.
//   - Cloud Run: the HTTP server listens on the configured port, health endpoints (/healthz, /readyz) stay
//     lightweight, and the process reacts to SIGTERM for graceful drain.
//
// Quick checklist:
//   - Configure env vars: SCRAPER_SERVER_PORT, SCRAPER_DB_DSN, SCRAPER_FETCH_PREMIUM_API_KEY,
//     SCRAPER_FETCH_HEADLESS_ENABLED, SCRAPER_ARCHIVE_BACKEND, SCRAPER_PUBSUB_PROJECT_ID, SCRAPER_PUBSUB_TOPIC.
//   - Run locally: go run ./cmd/eventscraper -config config.yaml (or rely solely on env overrides).
//   - Migrations: set SCRAPER_DB_MIGRATE_ON_START=true to apply the embedded schema on boot.
package main
