// Package analysis turns classified comments into statistics, keywords and
// reports, and keeps finished analyses in memory.
package analysis

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"seedwatch/internal/domain"
)

const (
	// MaxKeywords is the number of keywords kept per analysis
	MaxKeywords = 20
	// minKeywordRunes: tokens of this length or shorter are ignored
	minKeywordRunes = 2
)

// defaultStopWords are common Vietnamese function words
var defaultStopWords = []string{
	"và", "của", "có", "là", "được", "một", "trong", "với", "để", "cho",
	"từ", "này", "đó", "các", "những", "khi", "nếu", "như", "về", "theo",
	"tôi", "bạn", "anh", "chị", "em", "mình", "họ", "chúng", "ta",
}

// KeywordCount is one ranked keyword
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Aggregator builds analysis results
type Aggregator struct {
	stopWords map[string]bool
	now       func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator with the Vietnamese stop-word list
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		stopWords: stopWordSet(defaultStopWords),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func stopWordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[normalizeLower(w)] = true
	}
	return set
}

// Aggregate computes stats over comments and extracts keywords from the
// comments labeled Seeding. The result has no id until it is stored.
func (a *Aggregator) Aggregate(comments []domain.Comment, source string) domain.AnalysisResult {
	seeding := make([]domain.Comment, 0, len(comments))
	for _, c := range comments {
		if c.IsSeeding() {
			seeding = append(seeding, c)
		}
	}

	ranked := a.ExtractKeywords(seeding)
	keywords := make(map[string]int, len(ranked))
	for _, kc := range ranked {
		keywords[kc.Keyword] = kc.Count
	}

	return domain.AnalysisResult{
		Comments:    comments,
		Stats:       ComputeStats(comments),
		Keywords:    keywords,
		Source:      source,
		ProcessedAt: a.now().UTC(),
	}
}

// ComputeStats counts labels. Unclassified comments count as not seeding.
func ComputeStats(comments []domain.Comment) domain.AnalysisStats {
	stats := domain.AnalysisStats{Total: len(comments)}
	for i := range comments {
		if comments[i].IsSeeding() {
			stats.SeedingCount++
		}
	}
	stats.NotSeedingCount = stats.Total - stats.SeedingCount
	stats.SeedingPercentage = percentage(stats.SeedingCount, stats.Total)
	return stats
}

// percentage returns part/total*100 rounded to two decimals, or 0
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ExtractKeywords counts word frequencies across all given comments and
// returns the top MaxKeywords by count. Ties keep first-seen order.
func (a *Aggregator) ExtractKeywords(comments []domain.Comment) []KeywordCount {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, c := range comments {
		for _, token := range tokenize(c.Text) {
			if utf8.RuneCountInString(token) <= minKeywordRunes || a.stopWords[token] {
				continue
			}
			if counts[token] == 0 {
				order = append(order, token)
			}
			counts[token]++
		}
	}

	ranked := make([]KeywordCount, len(order))
	for i, token := range order {
		ranked[i] = KeywordCount{Keyword: token, Count: counts[token]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > MaxKeywords {
		ranked = ranked[:MaxKeywords]
	}
	return ranked
}

// tokenize lower-cases text, replaces punctuation with spaces, drops digits
// and splits on whitespace
func tokenize(text string) []string {
	text = normalizeLower(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			// dropped without splitting the surrounding word
		case unicode.IsLetter(r) || unicode.IsMark(r) || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func normalizeLower(s string) string {
	return norm.NFC.String(strings.ToLower(s))
}

// RankKeywords orders a keyword map by count descending, then keyword, and
// keeps the first limit entries
func RankKeywords(keywords map[string]int, limit int) []KeywordCount {
	ranked := make([]KeywordCount, 0, len(keywords))
	for k, v := range keywords {
		ranked = append(ranked, KeywordCount{Keyword: k, Count: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Keyword < ranked[j].Keyword
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
