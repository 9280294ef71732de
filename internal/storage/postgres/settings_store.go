package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kindredpress/event-scraper/internal/scraper"
)

// SettingsStore reads organization-scoped scraper settings.
type SettingsStore struct {
	pool querier
}

// NewSettingsStore constructs a store over an existing pool.
func NewSettingsStore(pool querier) (*SettingsStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SettingsStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *SettingsStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// FilterSettings returns the organization's relevance-filter toggle.
// Organizations without a settings row get the permissive default.
func (s *SettingsStore) FilterSettings(ctx context.Context, orgID uuid.UUID) (scraper.FilterSettings, error) {
	query := `
		SELECT filter_enabled
		FROM scraping_filter_settings
		WHERE organization_id = $1;
	`
	var settings scraper.FilterSettings
	err := s.pool.QueryRow(ctx, query, orgID).Scan(&settings.FilterEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scraper.FilterSettings{}, nil
		}
		return scraper.FilterSettings{}, fmt.Errorf("get filter settings: %w", err)
	}
	return settings, nil
}
