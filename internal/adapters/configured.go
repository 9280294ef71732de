package adapters

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kindredpress/event-scraper/internal/scraper"
	"github.com/kindredpress/event-scraper/internal/textutil"
)

// ConfiguredAdapter drives extraction from a source's structural selector
// config. Container matching is by class-name substring so tenant configs
// survive the suffix churn of generated class names; each configured field
// selector falls back to the shared heuristic when it matches nothing.
type ConfiguredAdapter struct {
	cfg scraper.SelectorConfig
}

// NewConfiguredAdapter builds an adapter for one source's config.
func NewConfiguredAdapter(cfg scraper.SelectorConfig) *ConfiguredAdapter {
	return &ConfiguredAdapter{cfg: cfg}
}

// Name identifies the extraction method in event metadata.
func (a *ConfiguredAdapter) Name() string { return "configured" }

// Extract applies the configured container and field selectors.
func (a *ConfiguredAdapter) Extract(doc *goquery.Document, source scraper.EventSource, now time.Time) []Candidate {
	var out []Candidate
	for _, sel := range containersIn(doc, classQuery(a.cfg.Container)) {
		c := a.candidate(sel, source.URL, now)
		if c.Title != "" {
			out = append(out, c)
		}
	}
	return out
}

func (a *ConfiguredAdapter) candidate(sel *goquery.Selection, base string, now time.Time) Candidate {
	c := candidateFrom(sel, base, now)

	if t := a.fieldText(sel, a.cfg.Title); t != "" {
		c.Title = t
	}
	if raw := a.fieldText(sel, a.cfg.Date); raw != "" {
		if parsed, ok := textutil.ParseEventDate(raw, now); ok {
			c.Date = parsed
			c.HasDate = true
		} else {
			c.DateText = raw
			c.HasDate = false
		}
	}
	if loc := a.fieldText(sel, a.cfg.Location); loc != "" {
		c.Location = loc
	}
	if a.cfg.Link != "" {
		node := sel.Find(classQuery(a.cfg.Link)).First()
		if href := textutil.ResolveURL(base, node.AttrOr("href", "")); href != "" {
			c.Link = href
		}
	}
	return c
}

func (a *ConfiguredAdapter) fieldText(sel *goquery.Selection, selector string) string {
	if strings.TrimSpace(selector) == "" {
		return ""
	}
	return textutil.CleanText(sel.Find(classQuery(selector)).First().Text())
}

// classQuery turns a configured selector into a class-substring query.
// A leading dot or bare class name matches by substring; anything with
// CSS structure in it is passed through untouched.
func classQuery(selector string) string {
	selector = strings.TrimSpace(selector)
	if strings.ContainsAny(selector, " >[#:") {
		return selector
	}
	return fmt.Sprintf("[class*='%s']", strings.TrimPrefix(selector, "."))
}
