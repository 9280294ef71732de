package adapters

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kindredpress/event-scraper/internal/scraper"
	"github.com/kindredpress/event-scraper/internal/textutil"
)

// EventbriteAdapter targets Eventbrite discovery/listing markup. Card class
// names rotate between deployments, so matching is by substring.
type EventbriteAdapter struct{}

// NewEventbriteAdapter returns the Eventbrite adapter.
func NewEventbriteAdapter() *EventbriteAdapter {
	return &EventbriteAdapter{}
}

// Name identifies the extraction method in event metadata.
func (a *EventbriteAdapter) Name() string { return "eventbrite" }

// Match claims eventbrite hosts.
func (a *EventbriteAdapter) Match(u *url.URL) bool {
	return strings.Contains(strings.ToLower(u.Hostname()), "eventbrite.")
}

// Extract walks event cards.
func (a *EventbriteAdapter) Extract(doc *goquery.Document, source scraper.EventSource, now time.Time) []Candidate {
	var out []Candidate
	for _, sel := range containersIn(doc, "[class*='event-card'], [class*='search-event-card'], [data-testid*='event-card']") {
		c := candidateFrom(sel, source.URL, now)
		if c.Title == "" {
			c.Title = textutil.CleanText(sel.Find("[class*='card__title'], [class*='Typography_body']").First().Text())
		}
		if !c.HasDate {
			raw := textutil.CleanText(sel.Find("[class*='card__date'], p:first-of-type").First().Text())
			if parsed, ok := textutil.ParseEventDate(raw, now); ok {
				c.Date = parsed
				c.HasDate = true
			}
		}
		if id := sel.AttrOr("data-event-id", ""); id != "" {
			c.Metadata = map[string]any{"eventbrite_id": id}
		}
		if c.Title != "" {
			out = append(out, c)
		}
	}
	return out
}
