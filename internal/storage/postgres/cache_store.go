package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kindredpress/event-scraper/internal/scraper"
)

// CacheStore keeps one row per source per calendar day with the events of
// the most recent scrape.
type CacheStore struct {
	pool querier
}

// NewCacheStore constructs a store over an existing pool.
func NewCacheStore(pool querier) (*CacheStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CacheStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *CacheStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Get loads the cache entry for a source and day. The second return is
// false when no entry exists; validity is the caller's call.
func (s *CacheStore) Get(ctx context.Context, sourceID uuid.UUID, day string) (scraper.CacheEntry, bool, error) {
	query := `
		SELECT events, method, created_at
		FROM scrape_cache
		WHERE source_id = $1 AND day = $2;
	`
	entry := scraper.CacheEntry{SourceID: sourceID, Day: day}
	var eventsJSON []byte
	err := s.pool.QueryRow(ctx, query, sourceID, day).Scan(&eventsJSON, &entry.Method, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scraper.CacheEntry{}, false, nil
		}
		return scraper.CacheEntry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &entry.Events); err != nil {
			return scraper.CacheEntry{}, false, fmt.Errorf("decode cached events: %w", err)
		}
	}
	return entry, true, nil
}

// Put writes the entry, replacing any earlier scrape of the same day.
func (s *CacheStore) Put(ctx context.Context, entry scraper.CacheEntry) error {
	eventsJSON, err := json.Marshal(entry.Events)
	if err != nil {
		return fmt.Errorf("marshal cached events: %w", err)
	}
	query := `
		INSERT INTO scrape_cache (source_id, day, events, method, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_id, day) DO UPDATE
		SET events = EXCLUDED.events,
		    method = EXCLUDED.method,
		    created_at = EXCLUDED.created_at;
	`
	if _, err := s.pool.Exec(ctx, query, entry.SourceID, entry.Day, eventsJSON, entry.Method, entry.CreatedAt); err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}
