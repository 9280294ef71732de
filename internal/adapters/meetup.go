package adapters

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kindredpress/event-scraper/internal/scraper"
	"github.com/kindredpress/event-scraper/internal/textutil"
)

// MeetupAdapter targets Meetup group/find listing markup.
type MeetupAdapter struct{}

// NewMeetupAdapter returns the Meetup adapter.
func NewMeetupAdapter() *MeetupAdapter {
	return &MeetupAdapter{}
}

// Name identifies the extraction method in event metadata.
func (a *MeetupAdapter) Name() string { return "meetup" }

// Match claims meetup hosts.
func (a *MeetupAdapter) Match(u *url.URL) bool {
	return strings.Contains(strings.ToLower(u.Hostname()), "meetup.com")
}

// Extract walks event cards; Meetup reliably ships a <time datetime> per
// card, so the machine-readable path usually wins.
func (a *MeetupAdapter) Extract(doc *goquery.Document, source scraper.EventSource, now time.Time) []Candidate {
	var out []Candidate
	for _, sel := range containersIn(doc, "[id*='event-card'], [class*='eventCard'], [data-testid='event-card'], a[href*='/events/']") {
		c := candidateFrom(sel, source.URL, now)
		if c.Link == "" {
			if href := textutil.ResolveURL(source.URL, sel.AttrOr("href", "")); href != "" {
				c.Link = href
			}
		}
		if c.Title != "" && !seenTitle(out, c.Title) {
			out = append(out, c)
		}
	}
	return out
}

func seenTitle(list []Candidate, title string) bool {
	for _, c := range list {
		if strings.EqualFold(c.Title, title) {
			return true
		}
	}
	return false
}
