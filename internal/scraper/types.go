// Package scraper defines core types shared across subsystems.
package scraper

import (
	"time"

	"github.com/google/uuid"
)

// SelectorConfig is the optional structural scraping configuration attached
// to a source by the UI. A non-empty Container switches extraction to the
// configured adapter; per-field selectors fall back to broad heuristics when
// they match nothing.
type SelectorConfig struct {
	Container string `json:"container" mapstructure:"container"`
	Title     string `json:"title" mapstructure:"title"`
	Date      string `json:"date" mapstructure:"date"`
	Location  string `json:"location" mapstructure:"location"`
	Link      string `json:"link" mapstructure:"link"`
}

// GeoFilter narrows accepted events to a geographic area.
type GeoFilter struct {
	City     string  `json:"city"`
	State    string  `json:"state"`
	RadiusKm float64 `json:"radius_km"`
}

// EventSource is a tenant-configured external site scraped for events.
// last_scraped_at and performance_metrics are written only by this service.
type EventSource struct {
	ID             uuid.UUID          `json:"id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	Name           string             `json:"name"`
	URL            string             `json:"url"`
	Keywords       []string           `json:"keywords"`
	Geo            GeoFilter          `json:"geo"`
	Selectors      *SelectorConfig    `json:"scraping_config,omitempty"`
	Metrics        PerformanceMetrics `json:"performance_metrics"`
	IsActive       bool               `json:"is_active"`
	LastScrapedAt  *time.Time         `json:"last_scraped_at,omitempty"`
}

// PerformanceMetrics is the per-source rolling health record. It is
// overwritten atomically after every scrape attempt.
type PerformanceMetrics struct {
	LastSuccess     bool      `json:"last_success"`
	EventsFound     int       `json:"events_found"`
	LastError       *string   `json:"last_error,omitempty"`
	LastAttempt     time.Time `json:"last_attempt"`
	SuccessRate     float64   `json:"success_rate"`
	AvgResponseTime float64   `json:"avg_response_time"`
}

// RecordSuccess folds a successful attempt into the smoothed rates.
// The halving blend reacts quickly to recent behavior without letting a
// single outlier dominate the triage priority.
func (m *PerformanceMetrics) RecordSuccess(eventsFound int, elapsed time.Duration, at time.Time) {
	m.LastSuccess = true
	m.EventsFound = eventsFound
	m.LastError = nil
	m.LastAttempt = at
	if m.SuccessRate > 0 {
		m.SuccessRate = (m.SuccessRate + 100) / 2
	} else {
		m.SuccessRate = 100
	}
	seconds := elapsed.Seconds()
	if m.AvgResponseTime > 0 {
		m.AvgResponseTime = (m.AvgResponseTime + seconds) / 2
	} else {
		m.AvgResponseTime = seconds
	}
}

// RecordFailure folds a failed attempt into the smoothed rates.
func (m *PerformanceMetrics) RecordFailure(errText string, at time.Time) {
	m.LastSuccess = false
	m.EventsFound = 0
	m.LastError = &errText
	m.LastAttempt = at
	if m.SuccessRate > 0 {
		m.SuccessRate = m.SuccessRate * 0.9
	} else {
		m.SuccessRate = 50
	}
}

// ScrapedEvent is a candidate event extracted from a source. Every persisted
// event has a title longer than three characters and a resolved DateStart.
type ScrapedEvent struct {
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	DateStart       time.Time      `json:"date_start"`
	DateEnd         *time.Time     `json:"date_end,omitempty"`
	Location        string         `json:"location,omitempty"`
	URL             string         `json:"url,omitempty"`
	SourceName      string         `json:"source_name"`
	SourceID        uuid.UUID      `json:"source_id"`
	OrganizationID  uuid.UUID      `json:"organization_id"`
	MatchedKeywords []string       `json:"matched_keywords,omitempty"`
	RelevanceScore  float64        `json:"relevance_score"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// CacheValidity bounds how long a cache entry may be reused.
const CacheValidity = 24 * time.Hour

// CacheEntry holds one source's events for one calendar day. Entries are
// never mutated, only superseded by the next day's key.
type CacheEntry struct {
	SourceID  uuid.UUID      `json:"source_id"`
	Day       string         `json:"day"`
	Events    []ScrapedEvent `json:"events"`
	Method    string         `json:"method"`
	CreatedAt time.Time      `json:"created_at"`
}

// IsValid reports whether the entry is still inside its 24h window.
// An entry aged exactly 24h is expired.
func (e CacheEntry) IsValid(now time.Time) bool {
	return now.Sub(e.CreatedAt) < CacheValidity
}

// CacheDay formats the calendar-day component of a cache key.
func CacheDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ScrapeRequest is the trigger contract consumed from the UI/automation
// layer. TestMode suppresses persistence and returns raw events;
// ForceRefresh bypasses the recency skip.
type ScrapeRequest struct {
	OrganizationID uuid.UUID   `json:"organization_id"`
	SourceIDs      []uuid.UUID `json:"source_ids,omitempty"`
	TestMode       bool        `json:"test_mode"`
	ForceRefresh   bool        `json:"force_refresh"`
}

// ScrapeSummary is the trigger response. Success is false only for
// source-load failures; per-source degradation shows up in the counts.
type ScrapeSummary struct {
	RunID            string         `json:"run_id"`
	Success          bool           `json:"success"`
	Message          string         `json:"message"`
	TotalEvents      int            `json:"total_events"`
	SourcesProcessed int            `json:"sources_processed"`
	SourcesFailed    int            `json:"sources_failed"`
	Events           []ScrapedEvent `json:"events,omitempty"`
}

// FetchResult is raw HTML plus how it was obtained.
type FetchResult struct {
	HTML     string
	Method   string
	Duration time.Duration
}

// FilterSettings is the organization-scoped relevance-filter toggle.
// Absent settings default to permissive.
type FilterSettings struct {
	FilterEnabled bool `json:"filter_enabled"`
}
