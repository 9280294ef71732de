// Package textutil provides best-effort text extraction helpers for scraped
// HTML fragments: tag stripping, entity decoding, whitespace collapsing,
// attribute lookup and relative URL resolution.
package textutil

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	// \s is ASCII-only; \p{Zs} picks up NBSP and friends, which entity
	// decoding leaves embedded in scraped titles.
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// CleanText decodes HTML entities and collapses runs of whitespace.
func CleanText(s string) string {
	s = html.UnescapeString(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripHTML removes every tag from the fragment and cleans the remaining
// text. Script and style bodies are dropped with their tags.
func StripHTML(fragment string) string {
	return CleanText(stripPolicy.Sanitize(fragment))
}

// Attr returns the value of the named attribute in the first tag of the
// fragment that carries it, or "".
func Attr(fragment, name string) string {
	re, err := attrPattern(name)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(fragment)
	if len(m) < 2 {
		return ""
	}
	return CleanText(m[1])
}

func attrPattern(name string) (*regexp.Regexp, error) {
	return regexp.Compile(fmt.Sprintf(`(?i)\b%s\s*=\s*["']([^"']*)["']`, regexp.QuoteMeta(name)))
}

// FirstSentence returns the text up to the first sentence terminator,
// trimmed. Used as a last-resort title heuristic.
func FirstSentence(s string) string {
	s = CleanText(s)
	for _, term := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(s, term); idx > 0 {
			return strings.TrimSpace(s[:idx+1])
		}
	}
	return strings.TrimSuffix(s, ".")
}

// ResolveURL resolves href against base, returning href unchanged when it is
// already absolute and "" when nothing sensible can be built.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ""
	}
	return b.ResolveReference(ref).String()
}
