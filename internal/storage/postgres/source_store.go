package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kindredpress/event-scraper/internal/scraper"
)

// SourceStore reads tenant source configuration and writes back the health
// metrics this service owns.
type SourceStore struct {
	pool querier
}

// NewSourceStore constructs a store over an existing pool.
func NewSourceStore(pool querier) (*SourceStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SourceStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *SourceStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ListActiveSources returns the organization's active sources, optionally
// narrowed to explicit ids. Order is stable so triage and batching are
// reproducible.
func (s *SourceStore) ListActiveSources(
	ctx context.Context,
	orgID uuid.UUID,
	sourceIDs []uuid.UUID,
) ([]scraper.EventSource, error) {
	// A nil slice encodes as SQL NULL, which would NULL out the whole
	// filter predicate and hide every row. Normalize to an empty array.
	if sourceIDs == nil {
		sourceIDs = []uuid.UUID{}
	}
	query := `
		SELECT id, organization_id, name, url, keywords, geo, scraping_config,
		       performance_metrics, is_active, last_scraped_at
		FROM event_sources
		WHERE organization_id = $1
		  AND is_active = TRUE
		  AND ($2::uuid[] IS NULL OR cardinality($2::uuid[]) = 0 OR id = ANY($2))
		ORDER BY name, id;
	`
	rows, err := s.pool.Query(ctx, query, orgID, sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrSourceLoad, err)
	}
	defer rows.Close()

	var sources []scraper.EventSource
	for rows.Next() {
		var (
			src         scraper.EventSource
			geoJSON     []byte
			configJSON  []byte
			metricsJSON []byte
		)
		err := rows.Scan(
			&src.ID,
			&src.OrganizationID,
			&src.Name,
			&src.URL,
			&src.Keywords,
			&geoJSON,
			&configJSON,
			&metricsJSON,
			&src.IsActive,
			&src.LastScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan source row: %v", scraper.ErrSourceLoad, err)
		}
		if len(geoJSON) > 0 {
			if err := json.Unmarshal(geoJSON, &src.Geo); err != nil {
				return nil, fmt.Errorf("%w: decode geo for %s: %v", scraper.ErrSourceLoad, src.ID, err)
			}
		}
		if len(configJSON) > 0 {
			cfg := &scraper.SelectorConfig{}
			if err := json.Unmarshal(configJSON, cfg); err != nil {
				return nil, fmt.Errorf("%w: decode scraping config for %s: %v", scraper.ErrSourceLoad, src.ID, err)
			}
			src.Selectors = cfg
		}
		if len(metricsJSON) > 0 {
			if err := json.Unmarshal(metricsJSON, &src.Metrics); err != nil {
				return nil, fmt.Errorf("%w: decode metrics for %s: %v", scraper.ErrSourceLoad, src.ID, err)
			}
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrSourceLoad, err)
	}
	return sources, nil
}

// UpdateMetrics overwrites a source's health record and scrape timestamp in
// one statement.
func (s *SourceStore) UpdateMetrics(
	ctx context.Context,
	sourceID uuid.UUID,
	metrics scraper.PerformanceMetrics,
	scrapedAt time.Time,
) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	query := `
		UPDATE event_sources
		SET performance_metrics = $1, last_scraped_at = $2
		WHERE id = $3;
	`
	if _, err := s.pool.Exec(ctx, query, metricsJSON, scrapedAt, sourceID); err != nil {
		return fmt.Errorf("update source metrics: %w", err)
	}
	return nil
}
