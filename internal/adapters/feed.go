package adapters

import (
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/kindredpress/event-scraper/internal/textutil"
)

// FeedAdapter handles sources that publish RSS/Atom instead of scrapeable
// HTML, which is common for municipal calendars. Detection is by URL shape
// first and payload sniffing second, since feeds are frequently served from
// generic paths.
type FeedAdapter struct {
	parser *gofeed.Parser
}

// NewFeedAdapter returns the feed adapter.
func NewFeedAdapter() *FeedAdapter {
	return &FeedAdapter{parser: gofeed.NewParser()}
}

// Name identifies the extraction method in event metadata.
func (a *FeedAdapter) Name() string { return "feed" }

// LooksLikeFeed reports whether the source should be treated as RSS/Atom.
func (a *FeedAdapter) LooksLikeFeed(sourceURL, body string) bool {
	lowered := strings.ToLower(sourceURL)
	for _, marker := range []string{".rss", ".atom", "/feed", "format=rss", ".xml"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<rss") || strings.Contains(head, "<feed")
}

// ExtractFeed parses feed items into candidates.
func (a *FeedAdapter) ExtractFeed(body string) []Candidate {
	feed, err := a.parser.ParseString(body)
	if err != nil || feed == nil {
		return nil
	}
	var out []Candidate
	for i, item := range feed.Items {
		if i >= maxContainers {
			break
		}
		c := Candidate{
			Title:       textutil.CleanText(item.Title),
			Description: textutil.StripHTML(item.Description),
			Link:        item.Link,
			DateText:    item.Published,
		}
		if item.PublishedParsed != nil {
			c.Date = item.PublishedParsed.UTC()
			c.HasDate = true
		}
		if item.GUID != "" {
			c.Metadata = map[string]any{"feed_guid": item.GUID}
		}
		if c.Title != "" {
			out = append(out, c)
		}
	}
	return out
}
