package adapters

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kindredpress/event-scraper/internal/textutil"
)

// Shared field cascades. Every adapter funnels container selections through
// these so the fallback order stays in one place.

const (
	titleMinHeuristic = 10
	titleMaxHeuristic = 100
	descMinLength     = 20
	descMaxLength     = 200
	maxContainers     = 60
)

func titleFrom(sel *goquery.Selection) string {
	for _, q := range []string{"h1", "h2", "h3", "h4", "h5", "h6", "b", "strong"} {
		if t := textutil.CleanText(sel.Find(q).First().Text()); t != "" {
			return t
		}
	}
	if t := textutil.CleanText(sel.Find("a[title]").First().AttrOr("title", "")); t != "" {
		return t
	}
	if t := textutil.CleanText(sel.Find("a").First().Text()); t != "" {
		return t
	}
	if t := textutil.CleanText(sel.Find("[class*='title']").First().Text()); t != "" {
		return t
	}
	stripped := textutil.CleanText(sel.Text())
	sentence := textutil.FirstSentence(stripped)
	if len(sentence) >= titleMinHeuristic && len(sentence) <= titleMaxHeuristic {
		return sentence
	}
	return ""
}

// dateFrom walks the machine-readable attributes first, then visible text.
// The returned string is raw date text for downstream best-effort parsing
// when no attribute parsed cleanly.
func dateFrom(sel *goquery.Selection, now time.Time) (time.Time, string, bool) {
	for _, q := range []string{"[datetime]", "[data-date]", "[content]"} {
		node := sel.Find(q).First()
		if node.Length() == 0 {
			continue
		}
		raw := node.AttrOr("datetime", node.AttrOr("data-date", node.AttrOr("content", "")))
		if t, ok := textutil.ParseEventDate(raw, now); ok {
			return t, raw, true
		}
	}
	if txt := textutil.CleanText(sel.Find("time").First().Text()); txt != "" {
		if t, ok := textutil.ParseEventDate(txt, now); ok {
			return t, txt, true
		}
	}
	if txt := textutil.CleanText(sel.Find("[class*='date']").First().Text()); txt != "" {
		if t, ok := textutil.ParseEventDate(txt, now); ok {
			return t, txt, true
		}
		return time.Time{}, txt, false
	}
	return time.Time{}, textutil.CleanText(sel.Text()), false
}

func locationFrom(sel *goquery.Selection) string {
	for _, q := range []string{"[class*='location']", "[class*='venue']", "[class*='place']", "address"} {
		if t := textutil.CleanText(sel.Find(q).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func descriptionFrom(sel *goquery.Selection) string {
	for _, q := range []string{"[class*='desc']", "[class*='summary']", "[class*='excerpt']"} {
		if t := textutil.CleanText(sel.Find(q).First().Text()); t != "" {
			return t
		}
	}
	var out string
	sel.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := textutil.CleanText(p.Text())
		if len(t) >= descMinLength && len(t) <= descMaxLength {
			out = t
			return false
		}
		return true
	})
	return out
}

func linkFrom(sel *goquery.Selection, base string) string {
	var href string
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		resolved := textutil.ResolveURL(base, a.AttrOr("href", ""))
		if resolved == "" {
			return true
		}
		if href == "" {
			href = resolved
		}
		// Prefer anchors that look like event detail pages.
		if containsAny(strings.ToLower(a.AttrOr("href", "")), "event", "calendar", "detail", "register") {
			href = resolved
			return false
		}
		return true
	})
	return href
}

// candidateFrom applies the full field cascade to one container.
func candidateFrom(sel *goquery.Selection, base string, now time.Time) Candidate {
	date, dateText, hasDate := dateFrom(sel, now)
	return Candidate{
		Title:       titleFrom(sel),
		Description: descriptionFrom(sel),
		Location:    locationFrom(sel),
		Link:        linkFrom(sel, base),
		DateText:    dateText,
		Date:        date,
		HasDate:     hasDate,
	}
}

// containersIn returns the matches of q that are not nested inside another
// match, descending one level when a match is just a wrapper around several
// structurally rich rows. Substring class queries otherwise match a row's
// own field spans (event-date, event-location) and page-level wrappers.
func containersIn(doc *goquery.Document, q string) []*goquery.Selection {
	var tops []*goquery.Selection
	doc.Find(q).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(q).Length() == 0 {
			tops = append(tops, s)
		}
	})

	var out []*goquery.Selection
	for _, top := range tops {
		if len(out) >= maxContainers {
			break
		}
		var rich []*goquery.Selection
		top.Find(q).Each(func(_ int, s *goquery.Selection) {
			if s.Find("h1,h2,h3,h4,h5,h6,a,strong,b").Length() > 0 {
				rich = append(rich, s)
			}
		})
		if len(rich) >= 2 {
			out = append(out, rich...)
		} else {
			out = append(out, top)
		}
	}
	if len(out) > maxContainers {
		out = out[:maxContainers]
	}
	return out
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
