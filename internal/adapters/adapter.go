// Package adapters maps raw source HTML to candidate events. Each adapter
// specializes in one markup shape; a registry dispatches on the source's
// structural config or URL and falls back to a maximally permissive generic
// adapter. There is no schema contract with target sites, so every field is
// extracted through a cascade of fallbacks that trades precision for
// resilience against markup drift.
package adapters

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kindredpress/event-scraper/internal/relevance"
	"github.com/kindredpress/event-scraper/internal/scraper"
	"github.com/kindredpress/event-scraper/internal/textutil"
)

// Candidate is a pre-filter extraction result. Date is authoritative when
// HasDate is set; otherwise DateText is parsed best-effort downstream.
type Candidate struct {
	Title       string
	Description string
	Location    string
	Link        string
	DateText    string
	Date        time.Time
	HasDate     bool
	EndDate     *time.Time
	Metadata    map[string]any
}

// Adapter extracts candidates from a parsed document. now anchors yearless
// date resolution.
type Adapter interface {
	Name() string
	Extract(doc *goquery.Document, source scraper.EventSource, now time.Time) []Candidate
}

// hostAdapter additionally claims sources by URL shape.
type hostAdapter interface {
	Adapter
	Match(u *url.URL) bool
}

const minTitleLength = 3

// Registry implements scraper.Extractor over the adapter set.
type Registry struct {
	scorer  *relevance.Scorer
	clock   scraper.Clock
	feed    *FeedAdapter
	byHost  []hostAdapter
	generic *GenericAdapter
}

// NewRegistry builds the standard adapter set.
func NewRegistry(scorer *relevance.Scorer, clock scraper.Clock) *Registry {
	return &Registry{
		scorer: scorer,
		clock:  clock,
		feed:   NewFeedAdapter(),
		byHost: []hostAdapter{
			NewEventbriteAdapter(),
			NewMeetupAdapter(),
			NewLibraryAdapter(),
		},
		generic: NewGenericAdapter(),
	}
}

// Extract runs the dispatched adapter and returns only candidates the
// relevance scorer accepts. Candidates without a usable title are dropped.
func (r *Registry) Extract(html string, source scraper.EventSource, filterEnabled bool) []scraper.ScrapedEvent {
	if r.feed.LooksLikeFeed(source.URL, html) {
		return r.finish(r.feed.ExtractFeed(html), r.feed.Name(), source, filterEnabled)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	now := r.clock.Now()
	adapter := r.forSource(source)
	candidates := adapter.Extract(doc, source, now)
	if len(candidates) == 0 && adapter != Adapter(r.generic) {
		// Specialized markup drifted; the permissive pass still may find rows.
		adapter = r.generic
		candidates = r.generic.Extract(doc, source, now)
	}
	return r.finish(candidates, adapter.Name(), source, filterEnabled)
}

func (r *Registry) forSource(source scraper.EventSource) Adapter {
	if source.Selectors != nil && strings.TrimSpace(source.Selectors.Container) != "" {
		return NewConfiguredAdapter(*source.Selectors)
	}
	if u, err := url.Parse(source.URL); err == nil {
		for _, a := range r.byHost {
			if a.Match(u) {
				return a
			}
		}
	}
	return r.generic
}

func (r *Registry) finish(candidates []Candidate, method string, source scraper.EventSource, filterEnabled bool) []scraper.ScrapedEvent {
	now := r.clock.Now()
	var events []scraper.ScrapedEvent
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		title := textutil.CleanText(c.Title)
		if len(title) <= minTitleLength {
			continue
		}
		if _, dup := seen[strings.ToLower(title)]; dup {
			continue
		}
		seen[strings.ToLower(title)] = struct{}{}

		res := r.scorer.Score(title, c.Description, source.Keywords, filterEnabled)
		if !res.Accepted {
			continue
		}

		start := c.Date
		if !c.HasDate {
			if parsed, ok := textutil.ParseEventDate(c.DateText, now); ok {
				start = parsed
			} else {
				// The date cascade found nothing; resolve to the nearest
				// plausible slot rather than emitting a null instant.
				start = now.UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour).Add(12 * time.Hour)
			}
		}

		meta := map[string]any{"extraction_method": method}
		for k, v := range c.Metadata {
			meta[k] = v
		}

		events = append(events, scraper.ScrapedEvent{
			Title:           title,
			Description:     textutil.CleanText(c.Description),
			DateStart:       start,
			DateEnd:         c.EndDate,
			Location:        textutil.CleanText(c.Location),
			URL:             c.Link,
			SourceName:      source.Name,
			SourceID:        source.ID,
			OrganizationID:  source.OrganizationID,
			MatchedKeywords: res.MatchedKeywords,
			RelevanceScore:  res.Score,
			Metadata:        meta,
		})
	}
	return events
}
