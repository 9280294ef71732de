package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SourceStore reads source configuration and writes back health metrics.
type SourceStore interface {
	ListActiveSources(ctx context.Context, orgID uuid.UUID, sourceIDs []uuid.UUID) ([]EventSource, error)
	UpdateMetrics(ctx context.Context, sourceID uuid.UUID, metrics PerformanceMetrics, scrapedAt time.Time) error
}

// EventStore persists accepted events. Upsert ignores rows whose
// (organization_id, title, date_start, source_name) key already exists.
type EventStore interface {
	UpsertEvents(ctx context.Context, events []ScrapedEvent) (int, error)
}

// CacheStore is the append-only source+day cache of recent scrapes.
type CacheStore interface {
	Get(ctx context.Context, sourceID uuid.UUID, day string) (CacheEntry, bool, error)
	Put(ctx context.Context, entry CacheEntry) error
}

// SettingsStore reads the organization's relevance-filter toggle.
type SettingsStore interface {
	FilterSettings(ctx context.Context, orgID uuid.UUID) (FilterSettings, error)
}

// Fetcher retrieves raw HTML for a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// Extractor turns raw HTML into candidate events for one source.
type Extractor interface {
	Extract(html string, source EventSource, filterEnabled bool) []ScrapedEvent
}

// Publisher pushes run-completion notifications downstream.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
