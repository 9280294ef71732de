package adapters

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kindredpress/event-scraper/internal/scraper"
)

// LibraryAdapter covers the LibCal/municipal calendar family: table-row or
// list-item markup with a distinct date cell beside the event link.
type LibraryAdapter struct{}

// NewLibraryAdapter returns the library/municipal calendar adapter.
func NewLibraryAdapter() *LibraryAdapter {
	return &LibraryAdapter{}
}

// Name identifies the extraction method in event metadata.
func (a *LibraryAdapter) Name() string { return "library-calendar" }

var libraryHostMarkers = []string{"libcal.", "librarymarket.", "libnet.", ".gov"}

// Match claims library-platform and municipal hosts.
func (a *LibraryAdapter) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, marker := range libraryHostMarkers {
		if strings.Contains(host, marker) {
			return true
		}
	}
	return false
}

// Extract walks calendar rows.
func (a *LibraryAdapter) Extract(doc *goquery.Document, source scraper.EventSource, now time.Time) []Candidate {
	var out []Candidate
	for _, sel := range containersIn(doc, ".s-lc-ea-l, [class*='eventline'], [class*='calendar-event'], tr[class*='event'], li[class*='event']") {
		c := candidateFrom(sel, source.URL, now)
		if c.Location == "" {
			// Calendar rows often stash the branch in a plain cell.
			c.Location = strings.TrimSpace(sel.Find("td").Eq(2).Text())
		}
		if c.Title != "" {
			out = append(out, c)
		}
	}
	return out
}
