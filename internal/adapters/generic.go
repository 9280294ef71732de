package adapters

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kindredpress/event-scraper/internal/scraper"
)

// GenericAdapter is the maximally permissive fallback. It treats anything
// that smells like a repeated listing row as a container and relies on the
// shared field cascades to make sense of it.
type GenericAdapter struct{}

// NewGenericAdapter returns the fallback adapter.
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name identifies the extraction method in event metadata.
func (a *GenericAdapter) Name() string { return "generic" }

var genericContainerQueries = []string{
	"[class*='event']",
	"[class*='calendar-item']",
	"[class*='listing']",
	"[itemtype*='Event']",
	"article",
	"li[class]",
}

// Extract scans each container query in order and stops at the first one
// that yields candidates with titles, bounded to keep pathological pages
// cheap.
func (a *GenericAdapter) Extract(doc *goquery.Document, source scraper.EventSource, now time.Time) []Candidate {
	for _, q := range genericContainerQueries {
		var out []Candidate
		for _, sel := range containersIn(doc, q) {
			c := candidateFrom(sel, source.URL, now)
			if c.Title != "" {
				out = append(out, c)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
