// Package relevance classifies candidate events against an organization's
// keyword filter. The filter is advisory: the acceptance bar is deliberately
// loose because a missed genuine event costs more than a stray one.
package relevance

import "strings"

// Result is the outcome of scoring one candidate.
type Result struct {
	Accepted        bool
	MatchedKeywords []string
	Score           float64
}

// Domain keywords every organization cares about, regardless of per-source
// configuration.
var domainKeywords = []string{
	"accessible",
	"accessibility",
	"adaptive",
	"all ages",
	"all abilities",
	"community",
	"family",
	"family-friendly",
	"free",
	"inclusive",
	"inclusion",
	"kids",
	"sensory",
	"sensory-friendly",
	"special needs",
	"wheelchair",
}

const (
	domainKeywordPoints = 15
	sourceKeywordPoints = 8
	longTitleBonus      = 5
	acceptThreshold     = 15
	looseTitleLength    = 10
)

// Scorer evaluates title/description pairs.
type Scorer struct{}

// NewScorer returns a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score classifies a candidate. With filtering disabled every candidate is
// accepted at full score with no matched keywords.
func (s *Scorer) Score(title, description string, sourceKeywords []string, filterEnabled bool) Result {
	if !filterEnabled {
		return Result{Accepted: true, Score: 100}
	}

	haystack := strings.ToLower(title + " " + description)
	var (
		score   float64
		matched []string
	)
	for _, kw := range domainKeywords {
		if strings.Contains(haystack, kw) {
			score += domainKeywordPoints
			matched = append(matched, kw)
		}
	}
	for _, kw := range sourceKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) && !contains(matched, kw) {
			score += sourceKeywordPoints
			matched = append(matched, kw)
		}
	}
	if len(title) > 15 {
		score += longTitleBonus
	}
	if score > 100 {
		score = 100
	}

	accepted := score >= acceptThreshold || len(title) > looseTitleLength
	return Result{Accepted: accepted, MatchedKeywords: matched, Score: score}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
