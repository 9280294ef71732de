package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kindredpress/event-scraper/internal/scraper"
)

// EventStore persists accepted events into Postgres.
type EventStore struct {
	pool querier
}

// NewEventStore constructs a store over an existing pool.
func NewEventStore(pool querier) (*EventStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &EventStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *EventStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertEvents inserts events, silently skipping rows whose
// (organization_id, title, date_start, source_name) key already exists.
// Returns how many rows were actually inserted.
func (s *EventStore) UpsertEvents(ctx context.Context, events []scraper.ScrapedEvent) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("event store is not configured")
	}
	query := `
		INSERT INTO scraped_events (
			organization_id,
			source_id,
			source_name,
			title,
			description,
			date_start,
			date_end,
			location,
			url,
			matched_keywords,
			relevance_score,
			metadata
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
		)
		ON CONFLICT (organization_id, title, date_start, source_name) DO NOTHING;
	`
	inserted := 0
	for _, ev := range events {
		metadataJSON, err := json.Marshal(ev.Metadata)
		if err != nil {
			return inserted, fmt.Errorf("marshal metadata for %q: %w", ev.Title, err)
		}
		tag, err := s.pool.Exec(ctx, query,
			ev.OrganizationID,
			ev.SourceID,
			ev.SourceName,
			ev.Title,
			ev.Description,
			ev.DateStart,
			ev.DateEnd,
			ev.Location,
			ev.URL,
			ev.MatchedKeywords,
			ev.RelevanceScore,
			metadataJSON,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert event %q: %w", ev.Title, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
